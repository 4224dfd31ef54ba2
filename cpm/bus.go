// Package cpm hosts a minimal CP/M-shaped test harness around a z80.CPU:
// a flat 64 KiB memory/IO bus, a BDOS console trap at 0x0005, and a .COM
// image loader and run-to-completion driver.
package cpm

// Bus is a flat 64 KiB memory space and 64 KiB IO port space. It implements
// z80.Bus. A port without an installed handler behaves as plain storage: a
// read returns the last value written to that port, or 0 if none was.
type Bus struct {
	mem [0x10000]byte
	io  [0x10000]byte

	ioIn  map[uint16]func() byte
	ioOut map[uint16]func(byte)

	cycles uint64
}

// NewBus returns a zeroed 64 KiB bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Read(addr uint16) byte {
	return b.mem[addr]
}

func (b *Bus) Write(addr uint16, value byte) {
	b.mem[addr] = value
}

func (b *Bus) In(port uint16) byte {
	if b.ioIn != nil {
		if fn, ok := b.ioIn[port]; ok {
			return fn()
		}
	}
	return b.io[port]
}

func (b *Bus) Out(port uint16, value byte) {
	if b.ioOut != nil {
		if fn, ok := b.ioOut[port]; ok {
			fn(value)
			return
		}
	}
	b.io[port] = value
}

func (b *Bus) Tick(cycles int) {
	b.cycles += uint64(cycles)
}

// Cycles reports the total T-states ticked since construction.
func (b *Bus) Cycles() uint64 {
	return b.cycles
}

// HandleIn installs a read handler for a single port, overriding the flat
// IO array for that port only.
func (b *Bus) HandleIn(port uint16, fn func() byte) {
	if b.ioIn == nil {
		b.ioIn = make(map[uint16]func() byte)
	}
	b.ioIn[port] = fn
}

// HandleOut installs a write handler for a single port.
func (b *Bus) HandleOut(port uint16, fn func(byte)) {
	if b.ioOut == nil {
		b.ioOut = make(map[uint16]func(byte))
	}
	b.ioOut[port] = fn
}

// LoadAt copies image into memory starting at addr. It does not reset the
// rest of memory; callers wanting a clean slate should use a fresh Bus.
func (b *Bus) LoadAt(addr uint16, image []byte) {
	for i, v := range image {
		b.mem[addr+uint16(i)] = v
	}
}

// Bytes returns a copy of the full 64 KiB memory image, for snapshotting.
func (b *Bus) Bytes() []byte {
	out := make([]byte, len(b.mem))
	copy(out, b.mem[:])
	return out
}
