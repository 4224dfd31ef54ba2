package z80

import "fmt"

// StopReason explains why RunUntil returned control to the caller.
type StopReason int

const (
	// StopPredicate means the caller's predicate became true at an instruction boundary.
	StopPredicate StopReason = iota
	// StopBudget means the step budget was exhausted before the predicate fired.
	StopBudget
	// StopTrap means a trap handler requested termination.
	StopTrap
)

func (r StopReason) String() string {
	switch r {
	case StopPredicate:
		return "predicate"
	case StopBudget:
		return "budget-exhausted"
	case StopTrap:
		return "trap-requested"
	default:
		return "unknown"
	}
}

// TrapHandler is consulted at every instruction boundary, before the next
// instruction is fetched. It receives the CPU itself so it can inspect and
// mutate registers and memory (e.g. to emulate a host OS call trapped at a
// fixed PC, then redirect execution by popping a return address). Returning
// true asks RunUntil to stop with StopTrap.
type TrapHandler func(cpu *CPU) bool

// MemReadFunc and friends let a host intercept the bus without implementing
// the full Bus interface; they are wired in with SetBusHandlers.
type MemReadFunc func(addr uint16) byte
type MemWriteFunc func(addr uint16, value byte)
type IOReadFunc func(port uint16) byte
type IOWriteFunc func(port uint16, value byte)

// hookedBus wraps an existing Bus and allows individual read/write hooks to
// be overridden, falling back to the wrapped bus for anything left nil.
type hookedBus struct {
	inner Bus
	memRd MemReadFunc
	memWr MemWriteFunc
	ioRd  IOReadFunc
	ioWr  IOWriteFunc
}

func (h *hookedBus) Read(addr uint16) byte {
	if h.memRd != nil {
		return h.memRd(addr)
	}
	return h.inner.Read(addr)
}

func (h *hookedBus) Write(addr uint16, value byte) {
	if h.memWr != nil {
		h.memWr(addr, value)
		return
	}
	h.inner.Write(addr, value)
}

func (h *hookedBus) In(port uint16) byte {
	if h.ioRd != nil {
		return h.ioRd(port)
	}
	return h.inner.In(port)
}

func (h *hookedBus) Out(port uint16, value byte) {
	if h.ioWr != nil {
		h.ioWr(port, value)
		return
	}
	h.inner.Out(port, value)
}

func (h *hookedBus) Tick(cycles int) {
	h.inner.Tick(cycles)
}

// SetBusHandlers installs optional per-channel overrides on top of the bus
// the CPU was constructed with. A nil handler falls through to the
// underlying bus for that channel. Passing all nils removes the hooks.
func (c *CPU) SetBusHandlers(memRd MemReadFunc, memWr MemWriteFunc, ioRd IOReadFunc, ioWr IOWriteFunc) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if memRd == nil && memWr == nil && ioRd == nil && ioWr == nil {
		if wrapped, ok := c.bus.(*hookedBus); ok {
			c.bus = wrapped.inner
		}
		return
	}

	base := c.bus
	if wrapped, ok := c.bus.(*hookedBus); ok {
		base = wrapped.inner
	}
	c.bus = &hookedBus{inner: base, memRd: memRd, memWr: memWr, ioRd: ioRd, ioWr: ioWr}
}

// SetTrapHandler installs the function consulted at every instruction
// boundary during RunUntil. Pass nil to remove it.
func (c *CPU) SetTrapHandler(fn TrapHandler) {
	c.mutex.Lock()
	c.trap = fn
	c.mutex.Unlock()
}

// RunUntil steps the CPU repeatedly until pred(pc, halted) returns true, the
// trap handler requests a stop, or maxSteps instructions have executed
// (0 means unbounded). It never interrupts a step mid-instruction.
func (c *CPU) RunUntil(pred func(pc uint16, halted bool) bool, maxSteps int) StopReason {
	steps := 0
	for {
		c.mutex.RLock()
		trap := c.trap
		c.mutex.RUnlock()

		pc := c.PC
		halted := c.Halted
		if pred != nil && pred(pc, halted) {
			return StopPredicate
		}
		if trap != nil && trap(c) {
			return StopTrap
		}
		if maxSteps > 0 && steps >= maxSteps {
			return StopBudget
		}

		c.Step()
		steps++
	}
}

// ReadMem reads a single byte through the CPU's bus, bypassing instruction
// timing. Intended for host tooling (loaders, monitors), not opcode bodies.
func (c *CPU) ReadMem(addr uint16) byte {
	return c.bus.Read(addr)
}

// WriteMem writes a single byte through the CPU's bus, bypassing instruction
// timing.
func (c *CPU) WriteMem(addr uint16, value byte) {
	c.bus.Write(addr, value)
}

// RequestInt asserts a maskable interrupt with the given vector byte. IM2
// uses it verbatim as the low byte of the vector-table address; IM0 jumps to
// its restart address when it is an RST opcode and to 0x0038 otherwise; IM1
// ignores it and always jumps to 0x0038. The request
// is consumed the next time IFF1 is enabled and the current instruction
// completes; it does not stay asserted once serviced.
func (c *CPU) RequestInt(vector byte) {
	c.mutex.Lock()
	c.irqVector = vector
	c.irqLine = true
	c.mutex.Unlock()
}

// RequestNMI raises a non-maskable interrupt, serviced on the next
// instruction boundary regardless of IFF1.
func (c *CPU) RequestNMI() {
	c.mutex.Lock()
	c.nmiLine = true
	c.mutex.Unlock()
}

// GetReg reads a register by its conventional Z80 mnemonic. ok is false for
// an unrecognized name.
func (c *CPU) GetReg(name string) (value uint64, ok bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	switch name {
	case "A":
		return uint64(c.A), true
	case "F":
		return uint64(c.F), true
	case "B":
		return uint64(c.B), true
	case "C":
		return uint64(c.C), true
	case "D":
		return uint64(c.D), true
	case "E":
		return uint64(c.E), true
	case "H":
		return uint64(c.H), true
	case "L":
		return uint64(c.L), true
	case "A'":
		return uint64(c.A2), true
	case "F'":
		return uint64(c.F2), true
	case "B'":
		return uint64(c.B2), true
	case "C'":
		return uint64(c.C2), true
	case "D'":
		return uint64(c.D2), true
	case "E'":
		return uint64(c.E2), true
	case "H'":
		return uint64(c.H2), true
	case "L'":
		return uint64(c.L2), true
	case "AF":
		return uint64(c.AF()), true
	case "BC":
		return uint64(c.BC()), true
	case "DE":
		return uint64(c.DE()), true
	case "HL":
		return uint64(c.HL()), true
	case "AF'":
		return uint64(c.AF2()), true
	case "BC'":
		return uint64(c.BC2()), true
	case "DE'":
		return uint64(c.DE2()), true
	case "HL'":
		return uint64(c.HL2()), true
	case "IX":
		return uint64(c.IX), true
	case "IY":
		return uint64(c.IY), true
	case "SP":
		return uint64(c.SP), true
	case "PC":
		return uint64(c.PC), true
	case "I":
		return uint64(c.I), true
	case "R":
		return uint64(c.R), true
	case "IM":
		return uint64(c.IM), true
	case "IFF1":
		return boolToU64(c.IFF1), true
	case "IFF2":
		return boolToU64(c.IFF2), true
	}
	return 0, false
}

// SetReg writes a register by its conventional Z80 mnemonic. ok is false for
// an unrecognized name.
func (c *CPU) SetReg(name string, value uint64) (ok bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch name {
	case "A":
		c.A = byte(value)
	case "F":
		c.F = byte(value)
	case "B":
		c.B = byte(value)
	case "C":
		c.C = byte(value)
	case "D":
		c.D = byte(value)
	case "E":
		c.E = byte(value)
	case "H":
		c.H = byte(value)
	case "L":
		c.L = byte(value)
	case "AF":
		c.SetAF(uint16(value))
	case "BC":
		c.SetBC(uint16(value))
	case "DE":
		c.SetDE(uint16(value))
	case "HL":
		c.SetHL(uint16(value))
	case "IX":
		c.IX = uint16(value)
	case "IY":
		c.IY = uint16(value)
	case "SP":
		c.SP = uint16(value)
	case "PC":
		c.PC = uint16(value)
	case "I":
		c.I = byte(value)
	case "R":
		c.R = byte(value)
	case "IM":
		c.IM = byte(value)
	default:
		return false
	}
	return true
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// String renders a compact register dump, handy for trap handlers and CLI
// tracing.
func (c *CPU) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return fmt.Sprintf(
		"PC=%04X SP=%04X AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X IM=%d IFF1=%t",
		c.PC, c.SP, c.AF(), c.BC(), c.DE(), c.HL(), c.IX, c.IY, c.IM, c.IFF1,
	)
}
