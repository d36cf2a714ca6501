package gba

// GBA memory map; these addresses are fixed by the hardware.
const (
	IWRAMStart = 0x03000000
	IWRAMSize  = 0x8000

	IOStart = 0x04000000
	IOSize  = 0x400

	ROMStart   = 0x08000000
	ROMMaxSize = 0x2000000 // 32MiB

	EEPROMPort = 0x0D000000

	BackupStart = 0x0E000000 // SRAM and flash window
	BackupSize  = 0x10000
)

// flash command addresses
const (
	FlashCmd1   = 0x0E005555
	FlashCmd2   = 0x0E002AAA
	FlashStatus = 0x0E000000 // also receives the bank number after a bank select
)

// IO registers
const (
	RegDMA3SAD = 0x040000D4
	RegDMA3DAD = 0x040000D8
	RegDMA3CNT = 0x040000DC
	// high half of DMA3CNT carrying the control bits
	RegDMA3CNTH = 0x040000DE

	RegWAITCNT = 0x04000204
)

const (
	DMAEnable = 0x80000000
	DMA32Bit  = 0x04000000

	// DMA address control; 0 increments
	DMADstDecrement = 0x00200000
	DMADstFixed     = 0x00400000
	DMASrcDecrement = 0x00800000
	DMASrcFixed     = 0x01000000

	// waitstates suitable for EEPROM access (WS2 8 cycles)
	WaitCntEEPROM = 0x4317
)

// DefaultScratch is the IWRAM address used to stage bit-serial packets for DMA.
const DefaultScratch = 0x03007C00

// title field of the ROM header
const (
	HeaderTitle     = 0xA0
	HeaderTitleSize = 12
)
