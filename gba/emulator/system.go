// Package emulator provides an emulated GBA cartridge slot: enough of the console (IWRAM, the IO
// registers and the DMA3 engine) to drive a cartridge's ROM and backup memory through gba.Bus.
package emulator

import (
	"vfdump/gba"
	"vfdump/gba/emulator/backup"
	"vfdump/gba/emulator/memory"
)

type System struct {
	ROM   []byte
	IWRAM [gba.IWRAMSize]byte

	IO *memory.IOHW

	// Backup is the cartridge's save chip; nil for cartridges without one.
	Backup backup.Chip

	iwram  *memory.RAM
	window backup.Device
	serial backup.Serial

	// number of DMA3 transfers executed
	Transfers int
}

// New creates a system with the given ROM image and backup chip inserted.
func New(rom []byte, chip backup.Chip) *System {
	q := &System{
		ROM:    rom,
		Backup: chip,
	}
	q.iwram = memory.NewRAM(q.IWRAM[:], gba.IWRAMStart)
	q.IO = &memory.IOHW{OnWrite: q.ioWritten}

	switch c := chip.(type) {
	case backup.Device:
		q.window = c
	case backup.Serial:
		q.serial = c
	}

	return q
}

// Reset power cycles the console. IWRAM and the IO registers are cleared; the cartridge, its
// save included, is left as it is.
func (q *System) Reset() {
	q.iwram.Clear()
	q.IO.Clear()
	q.Transfers = 0
}

func region(addr uint32) uint32 {
	return addr >> 24
}

func (q *System) readROM(addr uint32) uint8 {
	offs := addr & (gba.ROMMaxSize - 1)
	if int(offs) >= len(q.ROM) {
		return 0
	}
	return q.ROM[offs]
}

func (q *System) Read8(addr uint32) uint8 {
	switch region(addr) {
	case 0x03:
		return q.iwram.Read(addr)
	case 0x04:
		if addr < gba.IOStart+gba.IOSize {
			return q.IO.Read(addr)
		}
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C:
		return q.readROM(addr)
	case 0x0D:
		if q.serial != nil {
			return uint8(q.serial.ReadBit())
		}
		return q.readROM(addr)
	case 0x0E, 0x0F:
		if q.window != nil {
			return q.window.Read(addr & (gba.BackupSize - 1))
		}
		return 0xff
	}
	return 0
}

func (q *System) Read16(addr uint32) uint16 {
	switch region(addr) {
	case 0x0D:
		if q.serial != nil {
			return q.serial.ReadBit()
		}
	case 0x0E, 0x0F:
		// 8 bit bus; the byte is repeated on both lanes
		return uint16(q.Read8(addr)) * 0x0101
	}
	return uint16(q.Read8(addr)) | uint16(q.Read8(addr+1))<<8
}

func (q *System) Read32(addr uint32) uint32 {
	switch region(addr) {
	case 0x0D:
		if q.serial != nil {
			return uint32(q.serial.ReadBit())
		}
	case 0x0E, 0x0F:
		return uint32(q.Read8(addr)) * 0x01010101
	}
	return uint32(q.Read16(addr)) | uint32(q.Read16(addr+2))<<16
}

func (q *System) Write8(addr uint32, value uint8) {
	switch region(addr) {
	case 0x03:
		q.iwram.Write(addr, value)
	case 0x04:
		if addr < gba.IOStart+gba.IOSize {
			q.IO.Write(addr, value)
		}
	case 0x0E, 0x0F:
		if q.window != nil {
			q.window.Write(addr&(gba.BackupSize-1), value)
		}
	}
}

func (q *System) Write16(addr uint32, value uint16) {
	switch region(addr) {
	case 0x0D:
		if q.serial != nil {
			q.serial.WriteBit(value)
		}
		return
	case 0x0E, 0x0F:
		q.Write8(addr, uint8(value))
		return
	}
	q.Write8(addr, uint8(value))
	q.Write8(addr+1, uint8(value>>8))
}

func (q *System) Write32(addr uint32, value uint32) {
	switch region(addr) {
	case 0x0D:
		if q.serial != nil {
			q.serial.WriteBit(uint16(value))
		}
		return
	case 0x0E, 0x0F:
		q.Write8(addr, uint8(value))
		return
	}
	q.Write16(addr, uint16(value))
	q.Write16(addr+2, uint16(value>>16))
}

// ReadBlock implements gba.BlockReader; ROM reads are copied directly.
func (q *System) ReadBlock(addr uint32, p []byte) {
	if r := region(addr); r >= 0x08 && r <= 0x0C {
		offs := int(addr & (gba.ROMMaxSize - 1))
		n := 0
		if offs < len(q.ROM) {
			n = copy(p, q.ROM[offs:])
		}
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return
	}
	for i := range p {
		p[i] = q.Read8(addr + uint32(i))
	}
}

func (q *System) ioWritten(addr uint32) {
	// the top byte of DMA3CNT holds the enable bit; it is the last byte stored by both 16 and 32 bit writes
	if addr&0x3FF == (gba.RegDMA3CNT+3)&0x3FF && q.IO.Reg32(gba.RegDMA3CNT)&gba.DMAEnable != 0 {
		q.runDMA3()
	}
}

func step(ctl uint32, unit uint32) uint32 {
	switch ctl {
	case 1:
		return -unit
	case 2:
		return 0
	}
	return unit
}

func (q *System) runDMA3() {
	sad := q.IO.Reg32(gba.RegDMA3SAD)
	dad := q.IO.Reg32(gba.RegDMA3DAD)
	cnt := q.IO.Reg32(gba.RegDMA3CNT)

	count := cnt & 0xFFFF
	if count == 0 {
		count = 0x10000
	}

	unit := uint32(2)
	if cnt&gba.DMA32Bit != 0 {
		unit = 4
	}
	srcStep := step((cnt>>23)&3, unit)
	dstStep := step((cnt>>21)&3, unit)

	for i := uint32(0); i < count; i++ {
		if unit == 4 {
			q.Write32(dad, q.Read32(sad))
		} else {
			q.Write16(dad, q.Read16(sad))
		}
		sad += srcStep
		dad += dstStep
	}

	// immediate transfers complete before the CPU resumes
	q.IO.SetReg32(gba.RegDMA3CNT, cnt&^gba.DMAEnable)
	q.Transfers++
}
