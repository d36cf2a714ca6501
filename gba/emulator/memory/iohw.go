package memory

import "encoding/binary"

// IOHW is the IO register file at $04000000. Writes are stored as-is; OnWrite is called after
// every store so that registers with side effects (DMA) can react.
type IOHW struct {
	state [0x400]byte

	OnWrite func(address uint32)
}

func (f *IOHW) Read(address uint32) (value byte) {
	return f.state[address&0x3FF]
}

func (f *IOHW) Write(address uint32, value byte) {
	f.state[address&0x3FF] = value
	if f.OnWrite != nil {
		f.OnWrite(address)
	}
}

// Reg32 returns the little-endian word stored at address.
func (f *IOHW) Reg32(address uint32) uint32 {
	offs := address & 0x3FC
	return binary.LittleEndian.Uint32(f.state[offs : offs+4])
}

// SetReg32 stores a word without triggering side effects.
func (f *IOHW) SetReg32(address uint32, value uint32) {
	offs := address & 0x3FC
	binary.LittleEndian.PutUint32(f.state[offs:offs+4], value)
}

func (f *IOHW) Clear() {
	for i := range f.state {
		f.state[i] = 0
	}
}
