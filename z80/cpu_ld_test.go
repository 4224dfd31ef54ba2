package z80

import "testing"

func TestLD8RegToReg(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x41}) // LD B,C
	h.cpu.C = 0xAA

	h.cpu.Step()

	wantU8(t, "B", h.cpu.B, 0xAA)
	wantU16(t, "PC", h.cpu.PC, 0x0001)
	if h.cpu.Cycles != 4 {
		t.Fatalf("Cycles = %d, want 4", h.cpu.Cycles)
	}
}

func TestLD8RegFromMemory(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x7E}) // LD A,(HL)
	h.cpu.SetHL(0x2000)
	h.bus.mem[0x2000] = 0x55

	h.cpu.Step()

	wantU8(t, "A", h.cpu.A, 0x55)
	if h.cpu.Cycles != 7 {
		t.Fatalf("Cycles = %d, want 7", h.cpu.Cycles)
	}
}

func TestLD8MemoryFromReg(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x72}) // LD (HL),D
	h.cpu.SetHL(0x3000)
	h.cpu.D = 0x66

	h.cpu.Step()

	if h.bus.mem[0x3000] != 0x66 {
		t.Fatalf("mem[0x3000] = 0x%02X, want 0x66", h.bus.mem[0x3000])
	}
	if h.cpu.Cycles != 7 {
		t.Fatalf("Cycles = %d, want 7", h.cpu.Cycles)
	}
}

func TestLD8RegImmediate(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x1E, 0x99}) // LD E,n

	h.cpu.Step()

	wantU8(t, "E", h.cpu.E, 0x99)
	wantU16(t, "PC", h.cpu.PC, 0x0002)
	if h.cpu.Cycles != 7 {
		t.Fatalf("Cycles = %d, want 7", h.cpu.Cycles)
	}
}

func TestLD8MemoryImmediate(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x36, 0x77}) // LD (HL),n
	h.cpu.SetHL(0x4000)

	h.cpu.Step()

	if h.bus.mem[0x4000] != 0x77 {
		t.Fatalf("mem[0x4000] = 0x%02X, want 0x77", h.bus.mem[0x4000])
	}
	wantU16(t, "PC", h.cpu.PC, 0x0002)
	if h.cpu.Cycles != 10 {
		t.Fatalf("Cycles = %d, want 10", h.cpu.Cycles)
	}
}
