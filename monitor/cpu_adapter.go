package monitor

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zotley/z80core/disasm"
	"github.com/zotley/z80core/z80"
)

// DebugZ80 adapts a z80.CPU to the DebuggableCPU interface the command
// loop drives. It owns the goroutine that runs the CPU freely between
// breakpoints. Freeze and Resume serialize through runMu; Step takes no lock
// and steps the CPU directly, even while a free run is in progress.
type DebugZ80 struct {
	cpu *z80.CPU

	runMu   sync.Mutex
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	bpMu        sync.RWMutex
	breakpoints map[uint64]*BreakpointCondition
	watchpoints map[uint64]*Watchpoint
	bpChan      chan<- BreakpointEvent
}

func NewDebugZ80(cpu *z80.CPU) *DebugZ80 {
	return &DebugZ80{
		cpu:         cpu,
		breakpoints: make(map[uint64]*BreakpointCondition),
		watchpoints: make(map[uint64]*Watchpoint),
	}
}

func (d *DebugZ80) CPUName() string   { return "Z80" }
func (d *DebugZ80) AddressWidth() int { return 16 }

func (d *DebugZ80) GetRegisters() []RegisterInfo {
	names := []struct {
		name  string
		width int
		group string
	}{
		{"A", 8, "general"}, {"F", 8, "flags"},
		{"B", 8, "general"}, {"C", 8, "general"},
		{"D", 8, "general"}, {"E", 8, "general"},
		{"H", 8, "general"}, {"L", 8, "general"},
		{"A'", 8, "shadow"}, {"F'", 8, "shadow"},
		{"B'", 8, "shadow"}, {"C'", 8, "shadow"},
		{"D'", 8, "shadow"}, {"E'", 8, "shadow"},
		{"H'", 8, "shadow"}, {"L'", 8, "shadow"},
		{"IX", 16, "index"}, {"IY", 16, "index"},
		{"SP", 16, "general"}, {"PC", 16, "general"},
		{"I", 8, "status"}, {"R", 8, "status"}, {"IM", 8, "status"},
	}
	out := make([]RegisterInfo, 0, len(names))
	for _, n := range names {
		value, _ := d.cpu.GetReg(n.name)
		out = append(out, RegisterInfo{Name: n.name, BitWidth: n.width, Value: value, Group: n.group})
	}
	return out
}

func (d *DebugZ80) GetRegister(name string) (uint64, bool) {
	return d.cpu.GetReg(strings.ToUpper(name))
}

func (d *DebugZ80) SetRegister(name string, value uint64) bool {
	return d.cpu.SetReg(strings.ToUpper(name), value)
}

func (d *DebugZ80) GetPC() uint64     { v, _ := d.cpu.GetReg("PC"); return v }
func (d *DebugZ80) SetPC(addr uint64) { d.cpu.SetReg("PC", addr) }

func (d *DebugZ80) IsRunning() bool {
	return d.running.Load()
}

// Freeze halts the free-run goroutine, if any, and blocks until it exits.
func (d *DebugZ80) Freeze() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if !d.running.Load() {
		return
	}
	close(d.stop)
	<-d.done
}

// Resume starts a goroutine that steps the CPU until a breakpoint,
// watchpoint, or HALT fires, or Freeze is called.
func (d *DebugZ80) Resume() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running.Load() {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.runLoop()
}

func (d *DebugZ80) runLoop() {
	defer close(d.done)
	defer d.running.Store(false)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		pc := d.GetPC()
		if d.checkBreakpoint(pc) {
			return
		}
		d.cpu.Step()
		if d.checkWatchpoints() {
			return
		}
		if d.cpu.Halted {
			return
		}
	}
}

// checkWatchpoints compares every watched address against the value it held
// before the step just taken, firing a BreakpointEvent and stopping the
// free-run loop on the first address that changed.
func (d *DebugZ80) checkWatchpoints() bool {
	d.bpMu.Lock()
	var fired *BreakpointEvent
	for addr, wp := range d.watchpoints {
		current := d.cpu.ReadMem(uint16(addr))
		if current != wp.LastValue {
			fired = &BreakpointEvent{
				Address:       d.GetPC(),
				IsWatch:       true,
				WatchAddr:     addr,
				WatchOldValue: wp.LastValue,
				WatchNewValue: current,
			}
			wp.LastValue = current
			break
		}
	}
	d.bpMu.Unlock()

	if fired == nil {
		return false
	}
	if d.bpChan != nil {
		select {
		case d.bpChan <- *fired:
		default:
		}
	}
	return true
}

func (d *DebugZ80) checkBreakpoint(pc uint64) bool {
	d.bpMu.RLock()
	cond, hit := d.breakpoints[pc]
	d.bpMu.RUnlock()
	if !hit {
		return false
	}
	if cond != nil && !d.evalCondition(cond) {
		return false
	}
	if d.bpChan != nil {
		select {
		case d.bpChan <- BreakpointEvent{Address: pc}:
		default:
		}
	}
	return true
}

func (d *DebugZ80) evalCondition(cond *BreakpointCondition) bool {
	var lhs uint64
	switch cond.Source {
	case CondSourceRegister:
		lhs, _ = d.cpu.GetReg(cond.RegName)
	case CondSourceMemory:
		lhs = uint64(d.cpu.ReadMem(uint16(cond.MemAddr)))
	default:
		return true
	}
	switch cond.Op {
	case CondOpEqual:
		return lhs == cond.Value
	case CondOpNotEqual:
		return lhs != cond.Value
	case CondOpLess:
		return lhs < cond.Value
	case CondOpGreater:
		return lhs > cond.Value
	case CondOpLessEqual:
		return lhs <= cond.Value
	case CondOpGreaterEqual:
		return lhs >= cond.Value
	}
	return true
}

func (d *DebugZ80) Step() int {
	return d.cpu.Step()
}

func (d *DebugZ80) Disassemble(addr uint64, count int) []DisassembledLine {
	pc := d.GetPC()
	lines := disasm.Disassemble(d.cpu.ReadMem, uint16(addr), count)
	out := make([]DisassembledLine, len(lines))
	for i, l := range lines {
		out[i] = DisassembledLine{
			Address:      uint64(l.Address),
			HexBytes:     l.HexBytes,
			Mnemonic:     l.Mnemonic,
			Size:         l.Size,
			IsBranch:     l.IsBranch,
			BranchTarget: uint64(l.BranchTarget),
			IsPC:         uint64(l.Address) == pc,
		}
	}
	return out
}

func (d *DebugZ80) SetBreakpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints[addr] = nil
	return true
}

func (d *DebugZ80) SetConditionalBreakpoint(addr uint64, cond *BreakpointCondition) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints[addr] = cond
	return true
}

func (d *DebugZ80) ClearBreakpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if _, ok := d.breakpoints[addr]; ok {
		delete(d.breakpoints, addr)
		return true
	}
	return false
}

func (d *DebugZ80) ClearAllBreakpoints() {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints = make(map[uint64]*BreakpointCondition)
}

func (d *DebugZ80) ListBreakpoints() []uint64 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]uint64, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		result = append(result, addr)
	}
	return result
}

func (d *DebugZ80) ListConditionalBreakpoints() []*ConditionalBreakpoint {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]*ConditionalBreakpoint, 0)
	for addr, cond := range d.breakpoints {
		if cond != nil {
			result = append(result, &ConditionalBreakpoint{Address: addr, Condition: cond})
		}
	}
	return result
}

func (d *DebugZ80) HasBreakpoint(addr uint64) bool {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	_, ok := d.breakpoints[addr]
	return ok
}

func (d *DebugZ80) GetConditionalBreakpoint(addr uint64) *ConditionalBreakpoint {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	cond, ok := d.breakpoints[addr]
	if !ok || cond == nil {
		return nil
	}
	return &ConditionalBreakpoint{Address: addr, Condition: cond}
}

func (d *DebugZ80) SetWatchpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.watchpoints[addr] = &Watchpoint{Type: WatchWrite, Address: addr, LastValue: d.cpu.ReadMem(uint16(addr))}
	return true
}

func (d *DebugZ80) ClearWatchpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if _, ok := d.watchpoints[addr]; ok {
		delete(d.watchpoints, addr)
		return true
	}
	return false
}

func (d *DebugZ80) ClearAllWatchpoints() {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.watchpoints = make(map[uint64]*Watchpoint)
}

func (d *DebugZ80) ListWatchpoints() []uint64 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]uint64, 0, len(d.watchpoints))
	for addr := range d.watchpoints {
		result = append(result, addr)
	}
	return result
}

func (d *DebugZ80) ReadMemory(addr uint64, size int) []byte {
	result := make([]byte, size)
	for i := range size {
		result[i] = d.cpu.ReadMem(uint16(addr) + uint16(i))
	}
	return result
}

func (d *DebugZ80) WriteMemory(addr uint64, data []byte) {
	for i, b := range data {
		d.cpu.WriteMem(uint16(addr)+uint16(i), b)
	}
}

func (d *DebugZ80) SetBreakpointChannel(ch chan<- BreakpointEvent) {
	d.bpChan = ch
}
