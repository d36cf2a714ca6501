package save

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"vfdump/gba"
)

// ScanLimit is how much of the ROM is searched for a save library tag.
const ScanLimit = 0x800000

const (
	scanChunk = 0x10000

	// blocks compared against block 0 to tell EEPROM sizes apart
	eepromProbeBlocks = 100
)

// Tag is the save library identifier found in a ROM image.
type Tag int

const (
	TagNone Tag = iota
	TagEEPROM
	TagSRAM
	TagFlash64K
	TagFlash128K
)

func (t Tag) String() string {
	switch t {
	case TagEEPROM:
		return "EEPROM_V"
	case TagSRAM:
		return "SRAM_V"
	case TagFlash64K:
		return "FLASH_V/FLASH512_V"
	case TagFlash128K:
		return "FLASH1M_V"
	}
	return "none"
}

// library identifiers as little-endian words
const (
	wordFLAS = 0x53414C46 // "FLAS"
	wordEEPR = 0x52504545 // "EEPR"
	wordSRAM = 0x4D415253 // "SRAM"
)

// matchTag classifies a pair of consecutive words.
func matchTag(word, next uint32) Tag {
	switch word {
	case wordFLAS:
		switch {
		case next == 0x5F4D3148: // "H1M_"
			return TagFlash128K
		case next&0xFFFF == 0x5F48: // "H_"
			return TagFlash64K
		case next == 0x32313548: // "H512"
			return TagFlash64K
		}
	case wordEEPR:
		if next&0xFFFFFF == 0x5F4D4F { // "OM_"
			return TagEEPROM
		}
	case wordSRAM:
		if next&0xFF == 0x5F { // "_"
			return TagSRAM
		}
	}
	return TagNone
}

// ScanImage searches the first size bytes of r for a save library tag at 4-byte aligned offsets and
// returns the first tag found and its offset. Both words of a tag must lie within size.
func ScanImage(r io.ReaderAt, size int64) (Tag, int64, error) {
	buf := make([]byte, scanChunk+4)
	for base := int64(0); base+8 <= size; base += scanChunk {
		n := int64(len(buf))
		if base+n > size {
			n = size - base
		}

		m, err := r.ReadAt(buf[:n], base)
		if err != nil && !errors.Is(err, io.EOF) {
			return TagNone, 0, err
		}

		for i := 0; i+8 <= m; i += 4 {
			word := binary.LittleEndian.Uint32(buf[i:])
			next := binary.LittleEndian.Uint32(buf[i+4:])
			if tag := matchTag(word, next); tag != TagNone {
				return tag, base + int64(i), nil
			}
		}

		if int64(m) < n {
			// image ends early
			break
		}
	}
	return TagNone, 0, nil
}

// Detect identifies the save technology of the cartridge by scanning its ROM for the identifier
// the save library embeds. EEPROM capacity is resolved by probing the chip.
//
// A cartridge without any identifier yields None and ErrNoSave.
func Detect(s *Subsystem) (*Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, offset, err := ScanImage(gba.NewROMReader(s.bus), ScanLimit)
	if err != nil {
		return None, fmt.Errorf("save: scan rom: %w", err)
	}

	var kind Kind
	switch tag {
	case TagNone:
		s.logf("no save library tag in first %#x bytes\n", ScanLimit)
		return None, ErrNoSave
	case TagSRAM:
		kind = SRAM32K
	case TagFlash64K:
		kind = Flash64K
	case TagFlash128K:
		kind = Flash128K
	case TagEEPROM:
		if kind, err = s.probeEEPROM(); err != nil {
			return None, fmt.Errorf("save: eeprom probe: %w", err)
		}
	}

	s.logf("found %v at %08X: %v\n", tag, offset, kind)
	return Lookup(kind), nil
}

// probeEEPROM reads blocks with 14-bit addresses. A 512 byte chip only decodes the top 6 address
// bits so every low block reads back as block 0; an 8KiB chip returns distinct contents as soon
// as any probed block differs from block 0.
func (s *Subsystem) probeEEPROM() (Kind, error) {
	s.bus.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)

	first := make([]byte, EEPROMBlockSize)
	if err := s.readEEPROM(eeprom8K, 0, first); err != nil {
		return Unknown, err
	}

	block := make([]byte, EEPROMBlockSize)
	for x := 1; x < eepromProbeBlocks; x++ {
		if err := s.readEEPROM(eeprom8K, x, block); err != nil {
			return Unknown, err
		}
		if !bytes.Equal(first, block) {
			return EEPROM8K, nil
		}
	}
	return EEPROM512, nil
}
