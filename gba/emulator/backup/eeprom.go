package backup

import "fmt"

const (
	EEPROMBlockSize = 8

	EEPROM512Size = 0x200
	EEPROM8KSize  = 0x2000

	// response preamble of dummy bits ahead of the data
	eepromDummyBits = 4
)

// EEPROM is a serial EEPROM driven bit by bit through the EEPROM port.
//
// A request is a stream of bits: 1 followed by 1 (read) or 0 (write), the block address MSB
// first, 64 data bits for writes, and a terminating 0. The chip decodes the bits it has received
// once the port is read. A read request is answered by 4 dummy bits followed by the 64 bits of
// the block. After a write, reads return 0 while the chip is busy and 1 once it is ready.
//
// The chip always decodes its own address width; a 512 byte chip sent a 14 bit address reads
// only the first 6 bits of it.
type EEPROM struct {
	data     []byte
	addrBits int

	bits []uint8

	reading  bool
	readPos  int
	readAddr int

	busy int

	// number of reads the chip reports busy after a write
	BusyReads int
	// once started, a write never completes
	StuckBusy bool

	Writes int
}

func NewEEPROM512() *EEPROM {
	return &EEPROM{data: erased(EEPROM512Size), addrBits: 6}
}

func NewEEPROM8K() *EEPROM {
	return &EEPROM{data: erased(EEPROM8KSize), addrBits: 14}
}

func (e *EEPROM) blocks() int {
	return len(e.data) / EEPROMBlockSize
}

func (e *EEPROM) WriteBit(value uint16) {
	e.reading = false
	e.bits = append(e.bits, uint8(value&1))
}

func (e *EEPROM) ReadBit() uint16 {
	if len(e.bits) > 0 {
		e.decode()
	}

	if e.reading {
		pos := e.readPos
		e.readPos++
		if e.readPos >= eepromDummyBits+64 {
			e.reading = false
		}
		if pos < eepromDummyBits {
			return 0
		}
		pos -= eepromDummyBits
		b := e.data[e.readAddr*EEPROMBlockSize+pos/8]
		return uint16(b>>(7-uint(pos%8))) & 1
	}

	if e.busy != 0 {
		if e.busy > 0 {
			e.busy--
		}
		return 0
	}
	return 1
}

func (e *EEPROM) decode() {
	bits := e.bits
	e.bits = e.bits[:0]

	if len(bits) < 2+e.addrBits || bits[0] != 1 {
		return
	}

	addr := 0
	for _, b := range bits[2 : 2+e.addrBits] {
		addr = addr<<1 | int(b)
	}
	addr &= e.blocks() - 1

	if bits[1] == 1 {
		e.reading = true
		e.readPos = 0
		e.readAddr = addr
		return
	}

	payload := bits[2+e.addrBits:]
	if len(payload) < 64 {
		return
	}
	block := e.data[addr*EEPROMBlockSize : (addr+1)*EEPROMBlockSize]
	for i := range block {
		var v byte
		for _, b := range payload[i*8 : i*8+8] {
			v = v<<1 | b
		}
		block[i] = v
	}
	e.Writes++
	e.busy = e.BusyReads
	if e.StuckBusy {
		e.busy = -1
	}
}

// Poke sets a byte of the chip's storage directly.
func (e *EEPROM) Poke(offset int, value byte) {
	e.data[offset] = value
}

func (e *EEPROM) Size() int           { return len(e.data) }
func (e *EEPROM) Bytes() []byte       { return dup(e.data) }
func (e *EEPROM) Load(p []byte) error { return load("eeprom", e.data, p) }
func (e *EEPROM) String() string {
	if len(e.data) >= 1024 {
		return fmt.Sprintf("eeprom %dKiB", len(e.data)/1024)
	}
	return fmt.Sprintf("eeprom %dB", len(e.data))
}
