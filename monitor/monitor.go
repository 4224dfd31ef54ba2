package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Loop is a single-letter command REPL driving a DebuggableCPU, in the
// spirit of a classic machine-code monitor: r(egisters), d(isassemble),
// m(emory), s(tep), g(o), halt, b(reakpoint), bc (clear), bl (list), q(uit).
type Loop struct {
	cpu DebuggableCPU
	in  *bufio.Scanner
	out io.Writer
}

// NewLoop builds a command loop reading lines from in and writing prompts
// and output to out.
func NewLoop(cpu DebuggableCPU, in io.Reader, out io.Writer) *Loop {
	return &Loop{cpu: cpu, in: bufio.NewScanner(in), out: out}
}

// Run processes commands until "q" or EOF. If fd is a terminal, raw mode is
// entered for the duration so arrow keys and Ctrl-C don't leak through to
// the line scanner; it is restored on return.
func (l *Loop) Run(fd int) error {
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, oldState)
		}
	}

	for {
		fmt.Fprint(l.out, "z80> ")
		if !l.in.Scan() {
			return l.in.Err()
		}
		line := strings.TrimSpace(l.in.Text())
		if line == "" {
			continue
		}
		if quit := l.dispatch(line); quit {
			return nil
		}
	}
}

func (l *Loop) dispatch(line string) (quit bool) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "q", "quit":
		return true
	case "r", "regs":
		l.cmdRegs()
	case "d", "disasm":
		l.cmdDisasm(args)
	case "m", "mem":
		l.cmdMem(args)
	case "s", "step":
		l.cmdStep()
	case "g", "go":
		l.cpu.Resume()
		fmt.Fprintln(l.out, "running")
	case "halt":
		l.cpu.Freeze()
		fmt.Fprintln(l.out, "halted")
	case "b", "break":
		l.cmdBreak(args)
	case "bc":
		l.cmdBreakClear(args)
	case "bl":
		l.cmdBreakList()
	default:
		fmt.Fprintf(l.out, "unknown command %q\n", cmd)
	}
	return false
}

func (l *Loop) cmdRegs() {
	for _, r := range l.cpu.GetRegisters() {
		fmt.Fprintf(l.out, "%-3s = %0*X\n", r.Name, r.BitWidth/4, r.Value)
	}
}

func (l *Loop) cmdDisasm(args []string) {
	addr := uint64(l.cpu.GetPC())
	count := 10
	if len(args) > 0 {
		addr = parseHex(args[0])
	}
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}
	for _, line := range l.cpu.Disassemble(addr, count) {
		marker := "  "
		if line.IsPC {
			marker = "->"
		}
		fmt.Fprintf(l.out, "%s %04X  %-12s %s\n", marker, line.Address, line.HexBytes, line.Mnemonic)
	}
}

func (l *Loop) cmdMem(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(l.out, "usage: m <addr> [count]")
		return
	}
	addr := parseHex(args[0])
	count := 16
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			count = n
		}
	}
	data := l.cpu.ReadMemory(addr, count)
	for i, b := range data {
		fmt.Fprintf(l.out, "%02X ", b)
		if (i+1)%16 == 0 {
			fmt.Fprintln(l.out)
		}
	}
	fmt.Fprintln(l.out)
}

func (l *Loop) cmdStep() {
	cycles := l.cpu.Step()
	fmt.Fprintf(l.out, "stepped %d cycles, PC=%04X\n", cycles, l.cpu.GetPC())
}

func (l *Loop) cmdBreak(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(l.out, "usage: b <addr>")
		return
	}
	addr := parseHex(args[0])
	l.cpu.SetBreakpoint(addr)
	fmt.Fprintf(l.out, "breakpoint set at %04X\n", addr)
}

func (l *Loop) cmdBreakClear(args []string) {
	if len(args) == 0 {
		l.cpu.ClearAllBreakpoints()
		fmt.Fprintln(l.out, "all breakpoints cleared")
		return
	}
	addr := parseHex(args[0])
	if l.cpu.ClearBreakpoint(addr) {
		fmt.Fprintf(l.out, "breakpoint cleared at %04X\n", addr)
	} else {
		fmt.Fprintf(l.out, "no breakpoint at %04X\n", addr)
	}
}

func (l *Loop) cmdBreakList() {
	for _, addr := range l.cpu.ListBreakpoints() {
		fmt.Fprintf(l.out, "%04X\n", addr)
	}
}

func parseHex(s string) uint64 {
	s = strings.TrimPrefix(strings.ToUpper(s), "0X")
	s = strings.TrimSuffix(s, "H")
	v, _ := strconv.ParseUint(s, 16, 64)
	return v
}
