// Package backup emulates the non-volatile memory chips found in GBA cartridges.
//
// SRAM and flash chips are byte-wide memories in the $0E000000 window and implement Device.
// EEPROM chips are reached one bit at a time through the EEPROM port and implement Serial.
package backup

import "fmt"

// Chip is common to every emulated backup memory.
type Chip interface {
	// Size in bytes of the chip's storage.
	Size() int
	// Bytes returns a copy of the chip's storage, suitable for writing a save file.
	Bytes() []byte
	// Load replaces the chip's storage; p must be exactly Size() bytes.
	Load(p []byte) error
}

// Device is a chip mapped byte-wide into the backup window. Offsets are relative to $0E000000.
type Device interface {
	Chip
	Read(offset uint32) byte
	Write(offset uint32, value byte)
}

// Serial is a chip reached through the bit-serial EEPROM port. Only bit 0 is significant.
type Serial interface {
	Chip
	ReadBit() uint16
	WriteBit(value uint16)
}

func load(name string, dst []byte, p []byte) error {
	if len(p) != len(dst) {
		return fmt.Errorf("backup: %s: save data is %d bytes, chip holds %d", name, len(p), len(dst))
	}
	copy(dst, p)
	return nil
}

func erased(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = 0xff
	}
	return data
}

func dup(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
