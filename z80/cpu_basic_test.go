package z80

import "testing"

func TestResetClearsEveryRegisterAndLine(t *testing.T) {
	h := newHarness()
	c := h.cpu

	c.A, c.F = 0x11, 0x22
	c.B, c.C, c.D, c.E, c.H, c.L = 0x33, 0x44, 0x55, 0x66, 0x77, 0x88
	c.A2, c.F2 = 0x99, 0xAA
	c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x01
	c.IX, c.IY = 0x1234, 0x4567
	c.SP, c.PC = 0xABCD, 0xFEED
	c.I, c.R = 0x12, 0x34
	c.IM = 2
	c.WZ = 0x2222
	c.IFF1, c.IFF2 = true, true
	c.irqLine, c.nmiLine, c.nmiPending, c.nmiPrev = true, true, true, true
	c.iffDelay = 1
	c.irqVector = 0x00
	c.Halted = true
	c.Cycles = 999

	c.Reset()

	wantU16(t, "PC", c.PC, 0x0000)
	wantU16(t, "SP", c.SP, 0xFFFF)
	for _, reg := range []struct {
		name string
		got  byte
	}{
		{"A", c.A}, {"F", c.F}, {"B", c.B}, {"C", c.C},
		{"D", c.D}, {"E", c.E}, {"H", c.H}, {"L", c.L},
		{"A'", c.A2}, {"F'", c.F2}, {"B'", c.B2}, {"C'", c.C2},
		{"D'", c.D2}, {"E'", c.E2}, {"H'", c.H2}, {"L'", c.L2},
		{"I", c.I}, {"R", c.R},
	} {
		wantU8(t, reg.name, reg.got, 0x00)
	}
	wantU16(t, "IX", c.IX, 0x0000)
	wantU16(t, "IY", c.IY, 0x0000)
	wantU16(t, "WZ", c.WZ, 0x0000)
	if c.IFF1 || c.IFF2 {
		t.Fatalf("IFF1/IFF2 should be cleared on reset")
	}
	if c.irqLine || c.nmiLine || c.nmiPending || c.nmiPrev {
		t.Fatalf("interrupt lines should be cleared on reset")
	}
	if c.iffDelay != 0 {
		t.Fatalf("iffDelay should be cleared on reset")
	}
	if c.irqVector != 0xFF {
		t.Fatalf("irqVector = 0x%02X, want 0xFF", c.irqVector)
	}
	if c.IM != 0 {
		t.Fatalf("IM = %d, want 0", c.IM)
	}
	if c.Halted {
		t.Fatalf("Halted should be false on reset")
	}
	if c.Cycles != 0 {
		t.Fatalf("Cycles = %d, want 0", c.Cycles)
	}
	if !c.Running() {
		t.Fatalf("Running should be true after reset")
	}
}

func TestRegisterPairAccessorsRoundTrip(t *testing.T) {
	h := newHarness()
	c := h.cpu

	c.SetAF(0x1234)
	c.SetBC(0x2345)
	c.SetDE(0x3456)
	c.SetHL(0x4567)
	c.SetAF2(0x6789)
	c.SetBC2(0x789A)
	c.SetDE2(0x89AB)
	c.SetHL2(0x9ABC)

	wantU16(t, "AF", c.AF(), 0x1234)
	wantU16(t, "BC", c.BC(), 0x2345)
	wantU16(t, "DE", c.DE(), 0x3456)
	wantU16(t, "HL", c.HL(), 0x4567)
	wantU16(t, "AF'", c.AF2(), 0x6789)
	wantU16(t, "BC'", c.BC2(), 0x789A)
	wantU16(t, "DE'", c.DE2(), 0x89AB)
	wantU16(t, "HL'", c.HL2(), 0x9ABC)
}

func TestSingleStepAdvancesPCAndTicksBus(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{0x00})

	h.cpu.Step()

	wantU16(t, "PC", h.cpu.PC, 0x0001)
	if h.cpu.Cycles != 4 {
		t.Fatalf("Cycles = %d, want 4", h.cpu.Cycles)
	}
	if h.bus.ticks != 4 {
		t.Fatalf("bus ticks = %d, want 4", h.bus.ticks)
	}
}
