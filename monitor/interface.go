package monitor

// RegisterInfo describes a single CPU register for display in the monitor.
type RegisterInfo struct {
	Name     string
	BitWidth int
	Value    uint64
	Group    string // "general", "index", "status", "shadow", "flags"
}

// DisassembledLine represents one disassembled instruction.
type DisassembledLine struct {
	Address      uint64
	HexBytes     string
	Mnemonic     string
	Size         int
	IsPC         bool
	IsBranch     bool
	BranchTarget uint64
}

// BreakpointEvent is published when the CPU hits a breakpoint or watchpoint during execution.
type BreakpointEvent struct {
	Address uint64

	IsWatch       bool
	WatchAddr     uint64
	WatchOldValue byte
	WatchNewValue byte
}

// ConditionOp is the comparison operator for a breakpoint condition.
type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

// ConditionSource is what a breakpoint condition compares.
type ConditionSource int

const (
	CondSourceRegister ConditionSource = iota
	CondSourceMemory
	CondSourceHitCount
)

// BreakpointCondition is a conditional expression guarding a breakpoint.
type BreakpointCondition struct {
	Source  ConditionSource
	RegName string
	MemAddr uint64
	Op      ConditionOp
	Value   uint64
}

// ConditionalBreakpoint pairs a breakpoint address with an optional condition.
type ConditionalBreakpoint struct {
	Address   uint64
	Condition *BreakpointCondition // nil = unconditional
	HitCount  uint64
}

// WatchpointType indicates the type of watchpoint.
type WatchpointType int

const (
	WatchWrite WatchpointType = iota
)

// Watchpoint is a write watchpoint on a memory address.
type Watchpoint struct {
	Type      WatchpointType
	Address   uint64
	LastValue byte
}

// DebuggableCPU is the interface the monitor drives a CPU core through.
type DebuggableCPU interface {
	CPUName() string
	AddressWidth() int

	GetRegisters() []RegisterInfo
	GetRegister(name string) (uint64, bool)
	SetRegister(name string, value uint64) bool
	GetPC() uint64
	SetPC(addr uint64)

	IsRunning() bool
	Freeze()
	Resume()

	Step() int

	Disassemble(addr uint64, count int) []DisassembledLine

	SetBreakpoint(addr uint64) bool
	SetConditionalBreakpoint(addr uint64, cond *BreakpointCondition) bool
	ClearBreakpoint(addr uint64) bool
	ClearAllBreakpoints()
	ListBreakpoints() []uint64
	ListConditionalBreakpoints() []*ConditionalBreakpoint
	HasBreakpoint(addr uint64) bool
	GetConditionalBreakpoint(addr uint64) *ConditionalBreakpoint

	SetWatchpoint(addr uint64) bool
	ClearWatchpoint(addr uint64) bool
	ClearAllWatchpoints()
	ListWatchpoints() []uint64

	ReadMemory(addr uint64, size int) []byte
	WriteMemory(addr uint64, data []byte)

	SetBreakpointChannel(ch chan<- BreakpointEvent)
}
