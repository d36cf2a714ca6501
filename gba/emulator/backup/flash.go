package backup

import "fmt"

const (
	FlashBankSize = 0x10000

	Flash64KSize  = 0x10000
	Flash128KSize = 0x20000
)

// manufacturer and device ids reported in ID mode
const (
	PanasonicID  = 0x32
	Panasonic64K = 0x1B
	SanyoID      = 0x62
	Sanyo128K    = 0x13
)

const toggleBitMask = 0x40

type flashState int

const (
	flashReady flashState = iota
	flashUnlock1
	flashUnlock2
)

// Flash is a command-sequenced flash chip. Commands are written as AA to $5555, 55 to $2AAA
// and the command byte to $5555:
//
//	90  enter ID mode; reads of $0000/$0001 return manufacturer/device
//	F0  leave ID mode (also accepted as a bare write while ready)
//	80  erase prefix; followed by an unlocked 10 to $5555 (chip) or 30 to a sector
//	A0  program the byte written next
//	B0  select the bank written next to $0000 (128KiB chips only)
//
// Erase and program leave the chip busy for BusyReads reads. While busy, reads return a status
// byte whose bit 6 toggles on every read.
type Flash struct {
	data []byte
	bank int

	state      flashState
	idMode     bool
	erase      bool
	program    bool
	bankSelect bool

	// reads left before the current operation completes; negative never completes
	busy   int
	status byte

	Manufacturer byte
	Device       byte

	// number of reads the chip reports busy after an erase or program
	BusyReads int
	// once started, an erase or program never completes
	StuckBusy bool

	// counts of completed operations
	Erases   int
	Programs int
}

func NewFlash64K() *Flash {
	return &Flash{
		data:         erased(Flash64KSize),
		Manufacturer: PanasonicID,
		Device:       Panasonic64K,
	}
}

func NewFlash128K() *Flash {
	return &Flash{
		data:         erased(Flash128KSize),
		Manufacturer: SanyoID,
		Device:       Sanyo128K,
	}
}

// Bank returns the bank currently mapped into the window.
func (f *Flash) Bank() int {
	return f.bank
}

func (f *Flash) Read(offset uint32) byte {
	offset &= FlashBankSize - 1

	if f.busy != 0 {
		if f.busy > 0 {
			f.busy--
		}
		f.status ^= toggleBitMask
		return f.status
	}

	if f.idMode {
		switch offset {
		case 0:
			return f.Manufacturer
		case 1:
			return f.Device
		}
	}

	return f.data[f.bank*FlashBankSize+int(offset)]
}

func (f *Flash) Write(offset uint32, value byte) {
	offset &= FlashBankSize - 1

	if f.busy != 0 {
		// commands are ignored until the current operation completes
		return
	}

	if f.program {
		f.program = false
		// programming can only clear bits
		f.data[f.bank*FlashBankSize+int(offset)] &= value
		f.Programs++
		f.startBusy()
		return
	}
	if f.bankSelect {
		f.bankSelect = false
		if offset == 0 && len(f.data) > FlashBankSize {
			f.bank = int(value & 1)
		}
		return
	}

	switch f.state {
	case flashReady:
		if offset == 0x5555 && value == 0xAA {
			f.state = flashUnlock1
		} else if value == 0xF0 {
			f.idMode = false
			f.erase = false
		}
	case flashUnlock1:
		if offset == 0x2AAA && value == 0x55 {
			f.state = flashUnlock2
		} else {
			f.state = flashReady
		}
	case flashUnlock2:
		f.state = flashReady
		if f.erase {
			f.erase = false
			f.eraseCommand(offset, value)
			return
		}
		if offset != 0x5555 {
			return
		}
		f.command(value)
	}
}

func (f *Flash) command(value byte) {
	switch value {
	case 0x90:
		f.idMode = true
	case 0xF0:
		f.idMode = false
	case 0x80:
		f.erase = true
	case 0xA0:
		f.program = true
	case 0xB0:
		if len(f.data) > FlashBankSize {
			f.bankSelect = true
		}
	}
}

func (f *Flash) eraseCommand(offset uint32, value byte) {
	switch {
	case offset == 0x5555 && value == 0x10:
		for i := range f.data {
			f.data[i] = 0xff
		}
	case value == 0x30:
		base := f.bank*FlashBankSize + int(offset&0xF000)
		for i := base; i < base+0x1000; i++ {
			f.data[i] = 0xff
		}
	default:
		return
	}
	f.Erases++
	f.startBusy()
}

func (f *Flash) startBusy() {
	f.busy = f.BusyReads
	if f.StuckBusy {
		f.busy = -1
	}
	f.status = 0
}

func (f *Flash) Size() int           { return len(f.data) }
func (f *Flash) Bytes() []byte       { return dup(f.data) }
func (f *Flash) Load(p []byte) error { return load("flash", f.data, p) }
func (f *Flash) String() string      { return fmt.Sprintf("flash %dKiB", len(f.data)/1024) }
