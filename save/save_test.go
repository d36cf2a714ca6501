package save

import (
	"testing"

	"vfdump/gba"
	"vfdump/gba/emulator"
	"vfdump/gba/emulator/backup"
	"vfdump/util"
)

func newSubsystem(t *testing.T, rom []byte, chip backup.Chip, opts ...Option) (*Subsystem, *emulator.System) {
	t.Helper()
	q := emulator.New(rom, chip)
	opts = append([]Option{WithBlockDelay(0), WithLogger(util.NewTestingLogger(t))}, opts...)
	return New(q, opts...), q
}

// romWithTag places a save library identifier at a word aligned offset of a small ROM.
func romWithTag(tag string, at int) []byte {
	rom := make([]byte, 0x1000)
	copy(rom[at:], tag)
	return rom
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + i>>8)
	}
	return p
}

type failingBus struct {
	gba.Bus
	err error
}

func (b *failingBus) Err() error { return b.err }

// busyDMABus reports DMA channel 3 as running forever.
type busyDMABus struct {
	gba.Bus
}

func (b *busyDMABus) Read32(addr uint32) uint32 {
	if addr == gba.RegDMA3CNT {
		return gba.DMAEnable
	}
	return b.Bus.Read32(addr)
}

// hookedBus calls onWrite8 before forwarding each byte write.
type hookedBus struct {
	gba.Bus
	onWrite8 func(addr uint32, value uint8)
}

func (b *hookedBus) Write8(addr uint32, value uint8) {
	b.onWrite8(addr, value)
	b.Bus.Write8(addr, value)
}
