package backup

const SRAMSize = 0x8000

// SRAM is battery backed static RAM. Writes are visible immediately; the 32KiB array is mirrored
// across the whole window.
type SRAM struct {
	data []byte
}

func NewSRAM() *SRAM {
	return &SRAM{data: erased(SRAMSize)}
}

func (s *SRAM) Read(offset uint32) byte {
	return s.data[offset&(SRAMSize-1)]
}

func (s *SRAM) Write(offset uint32, value byte) {
	s.data[offset&(SRAMSize-1)] = value
}

func (s *SRAM) Size() int           { return SRAMSize }
func (s *SRAM) Bytes() []byte       { return dup(s.data) }
func (s *SRAM) Load(p []byte) error { return load("sram", s.data, p) }
func (s *SRAM) String() string      { return "sram 32KiB" }
