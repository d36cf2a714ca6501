package save

import (
	"fmt"

	"vfdump/gba"
)

const (
	flashBankSize = 0x10000

	flashCmdID        = 0x90
	flashCmdExit      = 0xF0
	flashCmdErase     = 0x80
	flashCmdEraseChip = 0x10
	flashCmdProgram   = 0xA0
	flashCmdBank      = 0xB0

	// the status byte must read the same this many times in a row before an operation counts as
	// finished
	toggleConfirmations = 2

	progressStep = 0x1000
)

// SRAM and flash are mapped byte-wide at 0x0E000000 and only accept 8-bit accesses.

func (s *Subsystem) getSRAM(data []byte) error {
	gba.ReadBlock(s.bus, gba.BackupStart, data)
	s.progress("get", SRAM32K, len(data), len(data))
	return gba.Err(s.bus)
}

func (s *Subsystem) putSRAM(data []byte) error {
	for i, b := range data {
		s.bus.Write8(gba.BackupStart+uint32(i), b)
		if (i+1)%progressStep == 0 {
			s.progress("put", SRAM32K, i+1, len(data))
		}
	}
	return gba.Err(s.bus)
}

func (s *Subsystem) flashCommand(cmd uint8) {
	s.bus.Write8(gba.FlashCmd1, 0xAA)
	s.bus.Write8(gba.FlashCmd2, 0x55)
	s.bus.Write8(gba.FlashCmd1, cmd)
}

// flashIdentify enters ID mode, reads the manufacturer and device codes and returns the chip to
// read mode.
func (s *Subsystem) flashIdentify() (manufacturer, device uint8) {
	s.flashCommand(flashCmdID)
	manufacturer = s.bus.Read8(gba.FlashStatus)
	device = s.bus.Read8(gba.FlashStatus + 1)
	s.bus.Write8(gba.FlashStatus, flashCmdExit)
	return
}

func (s *Subsystem) selectBank(bank int) {
	s.flashCommand(flashCmdBank)
	s.bus.Write8(gba.FlashStatus, uint8(bank))
	s.bank = bank
}

// waitToggle waits for the status bit the chip toggles on every read while busy to settle.
func (s *Subsystem) waitToggle(op string, addr uint32) error {
	for i := 0; i < toggleConfirmations; i++ {
		err := s.wait(op, func() bool {
			a := s.bus.Read8(addr)
			b := s.bus.Read8(addr)
			return a == b
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FlashID returns the manufacturer and device codes of the flash chip.
func (s *Subsystem) FlashID() (manufacturer, device uint8, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	manufacturer, device = s.flashIdentify()
	return manufacturer, device, gba.Err(s.bus)
}

func (s *Subsystem) getFlash(kind Kind, data []byte) (err error) {
	banks := len(data) / flashBankSize
	if banks > 1 {
		// reset the chip to read mode before touching the bank latch
		s.flashIdentify()
		defer s.restoreBank(&err)
	}

	for bank := 0; bank < banks; bank++ {
		if banks > 1 {
			s.selectBank(bank)
		}
		gba.ReadBlock(s.bus, gba.BackupStart, data[bank*flashBankSize:(bank+1)*flashBankSize])
		s.progress("get", kind, (bank+1)*flashBankSize, len(data))
	}
	return gba.Err(s.bus)
}

func (s *Subsystem) putFlash(kind Kind, data []byte) (err error) {
	banks := len(data) / flashBankSize

	manufacturer, device := s.flashIdentify()
	s.logf("flash id %02x:%02x\n", manufacturer, device)

	s.flashCommand(flashCmdErase)
	s.flashCommand(flashCmdEraseChip)
	if err = s.waitToggle("flash-erase", gba.FlashStatus); err != nil {
		return fmt.Errorf("save: flash erase: %w", err)
	}

	if banks > 1 {
		defer s.restoreBank(&err)
	}
	for bank := 0; bank < banks; bank++ {
		if banks > 1 {
			s.selectBank(bank)
		}
		for i, b := range data[bank*flashBankSize : (bank+1)*flashBankSize] {
			addr := gba.BackupStart + uint32(i)
			s.flashCommand(flashCmdProgram)
			s.bus.Write8(addr, b)
			if err = s.waitToggle("flash-program", addr); err != nil {
				return fmt.Errorf("save: flash program %05x: %w", bank*flashBankSize+i, err)
			}
			if (i+1)%progressStep == 0 {
				s.progress("put", kind, bank*flashBankSize+i+1, len(data))
			}
		}
	}
	return gba.Err(s.bus)
}

// restoreBank maps bank 0 back in after an operation on a 128KiB chip, so that plain reads of the
// backup window see the first half again.
func (s *Subsystem) restoreBank(err *error) {
	s.selectBank(0)
	if *err == nil {
		*err = gba.Err(s.bus)
	}
	if *err != nil {
		// a chip that failed may have ignored the bank select
		s.bank = -1
	}
}
