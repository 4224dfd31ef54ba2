package z80

import "testing"

func TestIncDec8BitRegAndMemory(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{
		0x04, // INC B
		0x05, // DEC B
		0x34, // INC (HL)
		0x35, // DEC (HL)
	})
	h.cpu.B = 0x7F
	h.cpu.SetHL(0x2000)
	h.bus.mem[0x2000] = 0x00

	h.cpu.Step()
	wantU8(t, "B", h.cpu.B, 0x80)
	wantU8(t, "F", h.cpu.F, 0x94)

	h.cpu.Step()
	wantU8(t, "B", h.cpu.B, 0x7F)
	wantU8(t, "F", h.cpu.F, 0x3E)

	h.cpu.Step()
	if h.bus.mem[0x2000] != 0x01 {
		t.Fatalf("mem[0x2000] = %02X, want 01", h.bus.mem[0x2000])
	}
	wantU8(t, "F", h.cpu.F, 0x00)

	h.cpu.Step()
	if h.bus.mem[0x2000] != 0x00 {
		t.Fatalf("mem[0x2000] = %02X, want 00", h.bus.mem[0x2000])
	}
	wantU8(t, "F", h.cpu.F, 0x42)
}

func TestConditionalJPTakenAndNotTaken(t *testing.T) {
	program := []byte{
		0xC2, 0x08, 0x00, // JP NZ,0x0008
		0xC3, 0x0B, 0x00, // JP 0x000B
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // NOP padding (0x0006-0x000B)
	}

	h := newHarness()
	h.load(0x0000, program)
	h.cpu.F = 0
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0008)
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0009)

	h.load(0x0000, program)
	h.cpu.F = z80FlagZ
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0003)
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x000B)
}

func TestConditionalJRTakenAndNotTaken(t *testing.T) {
	h := newHarness()
	h.load(0x0000, []byte{
		0x20, 0x02, // JR NZ,+2
		0x00, 0x00, // NOP, NOP
		0x28, 0xFE, // JR Z,-2
	})
	h.cpu.F = 0

	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0004)
	if h.cpu.Cycles != 12 {
		t.Fatalf("Cycles = %d, want 12", h.cpu.Cycles)
	}
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0006)

	h.load(0x0000, []byte{0x28, 0xFE}) // JR Z,-2
	h.cpu.F = z80FlagZ
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0000)
	if h.cpu.Cycles != 12 {
		t.Fatalf("Cycles = %d, want 12", h.cpu.Cycles)
	}
}

func TestConditionalCallAndRet(t *testing.T) {
	program := []byte{
		0xC4, 0x06, 0x00, // CALL NZ,0x0006
		0xC9,       // RET (if call not taken)
		0x00, 0x00, // padding
		0xC9, // RET (call target)
		0x00, // NOP
	}

	h := newHarness()
	h.load(0x0000, program)
	h.cpu.SP = 0x9000
	h.cpu.F = 0

	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0006)
	if h.cpu.SP != 0x8FFE {
		t.Fatalf("SP = 0x%04X, want 0x8FFE", h.cpu.SP)
	}
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0003)

	h.load(0x0000, program)
	h.cpu.SP = 0x9000
	h.cpu.F = z80FlagZ
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0003)
	if h.cpu.SP != 0x9000 {
		t.Fatalf("SP = 0x%04X, want 0x9000", h.cpu.SP)
	}
	h.cpu.Step()
	wantU16(t, "PC", h.cpu.PC, 0x0000)
}
