package cpm

import (
	"bytes"
	"fmt"
	"os"

	"github.com/zotley/z80core/z80"
)

// LoadAddr is where CP/M's loader places a .COM image and where execution
// begins.
const LoadAddr = 0x0100

// initialSP is a stack pointer comfortably above any test image's own data,
// matching the convention test ROMs of this vintage assume.
const initialSP = 0xF000

// maxImageSize is the largest a .COM image can be and still fit below the
// BDOS/CCP reservation that real CP/M would occupy above the TPA; test
// images in this harness are well under it.
const maxImageSize = 0xF000 - LoadAddr

// LoadError reports a problem loading a .COM image, as opposed to a failure
// during execution.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Machine wires a z80.CPU to a flat Bus and a BDOS console trap, ready to
// load and run a .COM image.
type Machine struct {
	CPU    *z80.CPU
	Bus    *Bus
	Output bytes.Buffer
}

// NewMachine constructs a Machine with a fresh Bus and BDOS trap wired to
// its internal output buffer.
func NewMachine() *Machine {
	bus := NewBus()
	cpu := z80.New(bus)
	m := &Machine{CPU: cpu, Bus: bus}
	cpu.SetTrapHandler(BDOSTrap(&m.Output))
	return m
}

// LoadImage installs image at LoadAddr, seeds RET at the BDOS entry and
// HALT at the warm-boot address as a safety net for any path that reaches
// them outside the trap handler, and sets PC/SP to CP/M's start convention.
func (m *Machine) LoadImage(image []byte) error {
	if len(image) == 0 || len(image) > maxImageSize {
		return &LoadError{Err: fmt.Errorf("image size %d out of range (1..%d)", len(image), maxImageSize)}
	}

	m.CPU.Reset()
	m.Bus.LoadAt(LoadAddr, image)
	m.Bus.Write(WarmBoot, 0x76) // HALT
	m.Bus.Write(bdosEntry, 0xC9)

	m.CPU.SetReg("SP", initialSP)
	m.CPU.SetReg("PC", LoadAddr)
	return nil
}

// LoadFile reads path and loads it as a .COM image.
func (m *Machine) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if err := m.LoadImage(data); err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = path
			return le
		}
		return &LoadError{Path: path, Err: err}
	}
	return nil
}

// Run executes until the program reaches warm boot (PC==0x0000), HALTs, or
// maxSteps instructions have executed (0 means unbounded).
func (m *Machine) Run(maxSteps int) z80.StopReason {
	return m.CPU.RunUntil(func(pc uint16, halted bool) bool {
		return pc == WarmBoot || halted
	}, maxSteps)
}
