package save

import (
	"fmt"

	"vfdump/gba"
)

const (
	EEPROMBlockSize = 8

	// 4 dummy bits then 64 data bits
	eepromResponseWords = 68
	eepromDummyWords    = 4
)

type eepromVariant struct {
	kind     Kind
	addrBits int
	blocks   int
}

var (
	eeprom512 = eepromVariant{kind: EEPROM512, addrBits: 6, blocks: 64}
	eeprom8K  = eepromVariant{kind: EEPROM8K, addrBits: 14, blocks: 1024}
)

func (v eepromVariant) size() int {
	return v.blocks * EEPROMBlockSize
}

func eepromVariantOf(kind Kind) (eepromVariant, bool) {
	switch kind {
	case EEPROM512:
		return eeprom512, true
	case EEPROM8K:
		return eeprom8K, true
	}
	return eepromVariant{}, false
}

func appendAddress(p []uint16, offset, bits int) []uint16 {
	for n := bits - 1; n >= 0; n-- {
		p = append(p, uint16(offset>>uint(n))&1)
	}
	return p
}

// readRequest builds the packet asking for block offset: 1, 1, address MSB first, 0.
func readRequest(v eepromVariant, offset int) []uint16 {
	p := make([]uint16, 0, 3+v.addrBits)
	p = append(p, 1, 1)
	p = appendAddress(p, offset, v.addrBits)
	return append(p, 0)
}

// writeRequest builds the packet storing src at block offset: 1, 0, address MSB first, 64 data
// bits MSB first per byte, 0.
func writeRequest(v eepromVariant, offset int, src []byte) []uint16 {
	p := make([]uint16, 0, 3+v.addrBits+EEPROMBlockSize*8)
	p = append(p, 1, 0)
	p = appendAddress(p, offset, v.addrBits)
	for _, b := range src[:EEPROMBlockSize] {
		for bit := 7; bit >= 0; bit-- {
			p = append(p, uint16(b>>uint(bit))&1)
		}
	}
	return append(p, 0)
}

// unpackResponse assembles the 8 data bytes of a read response, skipping the dummy bits.
func unpackResponse(words []uint16, dest []byte) {
	in := words[eepromDummyWords:]
	for i := range dest[:EEPROMBlockSize] {
		var out byte
		for _, w := range in[i*8 : i*8+8] {
			out = out<<1 | byte(w&1)
		}
		dest[i] = out
	}
}

func (s *Subsystem) readEEPROM(v eepromVariant, offset int, dest []byte) error {
	if err := s.send(readRequest(v, offset)); err != nil {
		return err
	}
	words := make([]uint16, eepromResponseWords)
	if err := s.receive(words); err != nil {
		return err
	}
	unpackResponse(words, dest)
	return nil
}

func (s *Subsystem) writeEEPROM(v eepromVariant, offset int, src []byte) error {
	if err := s.send(writeRequest(v, offset, src)); err != nil {
		return err
	}
	return s.wait("eeprom-write", func() bool {
		return s.bus.Read16(gba.EEPROMPort)&1 == 1
	})
}

func checkBlock(v eepromVariant, offset int, buf []byte) error {
	if offset < 0 || offset >= v.blocks {
		return &RangeError{Kind: v.kind, Offset: offset, Blocks: v.blocks}
	}
	if len(buf) != EEPROMBlockSize {
		return &SizeError{Kind: v.kind, Want: EEPROMBlockSize, Got: len(buf)}
	}
	return nil
}

// ReadEEPROMBlock reads the 8 byte block at offset of an EEPROM of the given kind.
func (s *Subsystem) ReadEEPROMBlock(kind Kind, offset int, dest []byte) error {
	v, ok := eepromVariantOf(kind)
	if !ok {
		return fmt.Errorf("save: %v is not an EEPROM", kind)
	}
	if err := checkBlock(v, offset, dest); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)
	return s.readEEPROM(v, offset, dest)
}

// WriteEEPROMBlock writes the 8 byte block at offset of an EEPROM of the given kind and waits for
// the chip to finish programming.
func (s *Subsystem) WriteEEPROMBlock(kind Kind, offset int, src []byte) error {
	v, ok := eepromVariantOf(kind)
	if !ok {
		return fmt.Errorf("save: %v is not an EEPROM", kind)
	}
	if err := checkBlock(v, offset, src); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)
	return s.writeEEPROM(v, offset, src)
}

func (s *Subsystem) getEEPROM(v eepromVariant, data []byte) error {
	s.bus.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)
	for x := 0; x < v.blocks; x++ {
		block := data[x*EEPROMBlockSize : (x+1)*EEPROMBlockSize]
		if err := s.readEEPROM(v, x, block); err != nil {
			return fmt.Errorf("save: eeprom read block %d: %w", x, err)
		}
		s.progress("get", v.kind, (x+1)*EEPROMBlockSize, v.size())
		s.delay()
	}
	return nil
}

func (s *Subsystem) putEEPROM(v eepromVariant, data []byte) error {
	s.bus.Write16(gba.RegWAITCNT, gba.WaitCntEEPROM)
	for x := 0; x < v.blocks; x++ {
		block := data[x*EEPROMBlockSize : (x+1)*EEPROMBlockSize]
		if err := s.writeEEPROM(v, x, block); err != nil {
			return fmt.Errorf("save: eeprom write block %d: %w", x, err)
		}
		s.progress("put", v.kind, (x+1)*EEPROMBlockSize, v.size())
		s.delay()
	}
	return nil
}
