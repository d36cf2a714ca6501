package memory

// RAM is a flat byte array mapped at offset and mirrored every len(data) bytes.
type RAM struct {
	data   []byte
	offset uint32
}

func NewRAM(data []byte, offset uint32) *RAM {
	return &RAM{data, offset}
}

func (m *RAM) index(address uint32) uint32 {
	return (address - m.offset) % uint32(len(m.data))
}

func (m *RAM) Read(address uint32) byte {
	return m.data[m.index(address)]
}

func (m *RAM) Write(address uint32, value byte) {
	m.data[m.index(address)] = value
}

func (m *RAM) Clear() {
	for i := range m.data {
		m.data[i] = 0
	}
}
