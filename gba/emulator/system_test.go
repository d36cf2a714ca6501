package emulator

import (
	"testing"

	"vfdump/gba"
	"vfdump/gba/emulator/backup"
)

func TestSystem_Mappings(t *testing.T) {
	rom := make([]byte, 0x100)
	rom[0x10] = 0xFE
	rom[0x11] = 0xCA

	tests := []struct {
		name   string
		chip   backup.Chip
		verify func(t *testing.T, q *System)
	}{
		{
			name: "ROM",
			verify: func(t *testing.T, q *System) {
				if actual, expected := q.Read16(gba.ROMStart+0x10), uint16(0xCAFE); actual != expected {
					t.Errorf("mapping failed, actual = %04x, expected = %04x", actual, expected)
				}
				// wait state mirror
				if actual, expected := q.Read8(0x0A000010), uint8(0xFE); actual != expected {
					t.Errorf("mirror failed, actual = %v, expected = %v", actual, expected)
				}
				if actual := q.Read32(gba.ROMStart + 0x1000); actual != 0 {
					t.Errorf("beyond ROM should read 0, got %08x", actual)
				}
			},
		},
		{
			name: "IWRAM",
			verify: func(t *testing.T, q *System) {
				q.Write32(gba.IWRAMStart+0x100, 0x11223344)
				if actual, expected := q.IWRAM[0x101], uint8(0x33); actual != expected {
					t.Errorf("mapping failed, actual = %v, expected = %v", actual, expected)
				}
				if actual, expected := q.Read32(gba.IWRAMStart+0x8100), uint32(0x11223344); actual != expected {
					t.Errorf("mirror failed, actual = %08x, expected = %08x", actual, expected)
				}
			},
		},
		{
			name: "SRAM",
			chip: backup.NewSRAM(),
			verify: func(t *testing.T, q *System) {
				q.Write8(gba.BackupStart+0x20, 0x42)
				if actual, expected := q.Read16(gba.BackupStart+0x20), uint16(0x4242); actual != expected {
					t.Errorf("8 bit bus, actual = %04x, expected = %04x", actual, expected)
				}
				if actual, expected := q.Backup.Bytes()[0x20], uint8(0x42); actual != expected {
					t.Errorf("backing store, actual = %v, expected = %v", actual, expected)
				}
			},
		},
		{
			name: "no backup",
			verify: func(t *testing.T, q *System) {
				if actual, expected := q.Read8(gba.BackupStart), uint8(0xff); actual != expected {
					t.Errorf("empty window, actual = %v, expected = %v", actual, expected)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verify(t, New(rom, tt.chip))
		})
	}
}

func TestSystem_DMA3(t *testing.T) {
	q := New(nil, nil)
	for i := uint32(0); i < 8; i++ {
		q.Write16(gba.IWRAMStart+i*2, uint16(0x100+i))
	}

	q.Write32(gba.RegDMA3SAD, gba.IWRAMStart)
	q.Write32(gba.RegDMA3DAD, gba.IWRAMStart+0x200)
	q.Write32(gba.RegDMA3CNT, gba.DMAEnable+8)

	if q.Transfers != 1 {
		t.Fatalf("Transfers = %d", q.Transfers)
	}
	if q.Read32(gba.RegDMA3CNT)&gba.DMAEnable != 0 {
		t.Fatal("enable bit should clear on completion")
	}
	for i := uint32(0); i < 8; i++ {
		if actual, expected := q.Read16(gba.IWRAMStart+0x200+i*2), uint16(0x100+i); actual != expected {
			t.Errorf("word %d, actual = %04x, expected = %04x", i, actual, expected)
		}
	}
}

func TestSystem_DMA3FixedSource(t *testing.T) {
	q := New(nil, nil)
	q.Write16(gba.IWRAMStart, 0xBEEF)

	q.Write32(gba.RegDMA3SAD, gba.IWRAMStart)
	q.Write32(gba.RegDMA3DAD, gba.IWRAMStart+0x10)
	q.Write16(gba.RegDMA3CNT, 4)
	q.Write16(gba.RegDMA3CNTH, uint16((gba.DMAEnable|gba.DMASrcFixed)>>16))

	for i := uint32(0); i < 4; i++ {
		if actual := q.Read16(gba.IWRAMStart + 0x10 + i*2); actual != 0xBEEF {
			t.Errorf("word %d = %04x", i, actual)
		}
	}
}

func TestSystem_EEPROMPort(t *testing.T) {
	e := backup.NewEEPROM512()
	q := New(nil, e)

	if q.Read16(gba.EEPROMPort)&1 != 1 {
		t.Fatal("idle EEPROM should report ready")
	}

	// write request for block 1 of all zero bits, sent through DMA as the driver does
	packet := []uint16{1, 0, 0, 0, 0, 0, 0, 1}
	packet = append(packet, make([]uint16, 65)...)
	for i, w := range packet {
		q.Write16(gba.IWRAMStart+uint32(i*2), w)
	}
	q.Write32(gba.RegDMA3SAD, gba.IWRAMStart)
	q.Write32(gba.RegDMA3DAD, gba.EEPROMPort)
	q.Write32(gba.RegDMA3CNT, gba.DMAEnable+uint32(len(packet)))

	if q.Read16(gba.EEPROMPort)&1 != 1 {
		t.Fatal("expected ready after write")
	}
	for i, b := range e.Bytes()[8:16] {
		if b != 0 {
			t.Fatalf("byte %d = %02x", i, b)
		}
	}
	if e.Writes != 1 {
		t.Fatalf("Writes = %d", e.Writes)
	}
}

func TestSystem_ReadBlock(t *testing.T) {
	rom := []byte{1, 2, 3}
	q := New(rom, backup.NewSRAM())

	p := make([]byte, 5)
	gba.ReadBlock(q, gba.ROMStart+1, p)
	if p[0] != 2 || p[1] != 3 || p[2] != 0 || p[4] != 0 {
		t.Fatalf("ROM block = % x", p)
	}

	q.Write8(gba.BackupStart+1, 0x77)
	gba.ReadBlock(q, gba.BackupStart, p)
	if p[1] != 0x77 || p[0] != 0xff {
		t.Fatalf("SRAM block = % x", p)
	}
}

func TestSystem_Reset(t *testing.T) {
	chip := backup.NewSRAM()
	q := New(nil, chip)

	q.Write32(gba.IWRAMStart+0x7C00, 0x11223344)
	q.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)
	q.Write32(gba.RegDMA3SAD, gba.IWRAMStart)
	q.Write32(gba.RegDMA3DAD, gba.IWRAMStart+0x100)
	q.Write32(gba.RegDMA3CNT, gba.DMAEnable|2)
	q.Write8(gba.BackupStart, 0x42)
	if q.Transfers != 1 {
		t.Fatalf("Transfers, actual = %v, expected = %v", q.Transfers, 1)
	}

	q.Reset()

	if actual := q.Read32(gba.IWRAMStart + 0x7C00); actual != 0 {
		t.Errorf("IWRAM, actual = %08x, expected = 0", actual)
	}
	if actual := q.Read16(gba.RegWAITCNT); actual != 0 {
		t.Errorf("WAITCNT, actual = %04x, expected = 0", actual)
	}
	if actual := q.Read32(gba.RegDMA3SAD); actual != 0 {
		t.Errorf("DMA3SAD, actual = %08x, expected = 0", actual)
	}
	if q.Transfers != 0 {
		t.Errorf("Transfers, actual = %v, expected = %v", q.Transfers, 0)
	}
	if actual, expected := q.Read8(gba.BackupStart), uint8(0x42); actual != expected {
		t.Errorf("save lost, actual = %v, expected = %v", actual, expected)
	}
}
