package cpm

import (
	"io"

	"github.com/zotley/z80core/z80"
)

// bdosEntry is the fixed address CP/M programs CALL to reach BDOS; the
// harness traps here instead of providing a real BDOS.
const bdosEntry = 0x0005

// WarmBoot is the address CP/M programs jump (or fall through) to on exit.
const WarmBoot = 0x0000

// BDOSTrap returns a z80.TrapHandler that intercepts BDOS function calls 2
// (console character output) and 9 ($-terminated string output) at 0x0005,
// writing captured output to w, then simulates the RET a real BDOS would
// perform so the caller resumes normally. All other function numbers are a
// no-op RET — test images only ever exercise 2 and 9.
func BDOSTrap(w io.Writer) z80.TrapHandler {
	return func(c *z80.CPU) bool {
		pc, _ := c.GetReg("PC")
		if uint16(pc) != bdosEntry {
			return false
		}

		fn, _ := c.GetReg("C")
		switch byte(fn) {
		case 2:
			e, _ := c.GetReg("E")
			w.Write([]byte{byte(e)})
		case 9:
			de, _ := c.GetReg("DE")
			addr := uint16(de)
			for {
				ch := c.ReadMem(addr)
				if ch == '$' {
					break
				}
				w.Write([]byte{ch})
				addr++
			}
		}

		ret(c)
		return false
	}
}

// ret pops a return address off the stack and jumps to it, as if the
// instruction at the trapped PC had been a RET.
func ret(c *z80.CPU) {
	sp, _ := c.GetReg("SP")
	low := c.ReadMem(uint16(sp))
	high := c.ReadMem(uint16(sp) + 1)
	c.SetReg("SP", sp+2)
	c.SetReg("PC", uint64(uint16(high)<<8|uint16(low)))
}
