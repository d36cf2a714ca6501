package save

import (
	"encoding/binary"

	"vfdump/gba"
)

// The EEPROM port only takes 16-bit accesses at DMA speed, one bit per half-word. Packets are
// staged in IWRAM and moved by DMA channel 3.

// send transfers one bit per word to the EEPROM port.
func (s *Subsystem) send(words []uint16) error {
	for i, w := range words {
		s.bus.Write16(s.cfg.Scratch+uint32(i*2), w)
	}
	return s.dma(s.cfg.Scratch, gba.EEPROMPort, len(words))
}

// receive fills words with bits read from the EEPROM port.
func (s *Subsystem) receive(words []uint16) error {
	if err := s.dma(gba.EEPROMPort, s.cfg.Scratch, len(words)); err != nil {
		return err
	}

	raw := make([]byte, len(words)*2)
	gba.ReadBlock(s.bus, s.cfg.Scratch, raw)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return gba.Err(s.bus)
}

func (s *Subsystem) dma(src, dst uint32, count int) error {
	s.bus.Write32(gba.RegDMA3SAD, src)
	s.bus.Write32(gba.RegDMA3DAD, dst)
	s.bus.Write32(gba.RegDMA3CNT, gba.DMAEnable|uint32(count))
	return s.wait("dma", func() bool {
		return s.bus.Read32(gba.RegDMA3CNT)&gba.DMAEnable == 0
	})
}
