package device

import "tuxedoctl/internal/ioctl"

// Request codes understood by the tuxedo_io driver for Uniwill hardware.
// The numeric encoding is a fixed hardware contract; magic 0xEC with
// separate read and write bases.
const (
	magic      = 0xEC
	magicRead  = magic + 3
	magicWrite = magic + 4
)

var (
	opHardwareCheck = ioctl.IOR(magic, 0x06, ioctl.PointerSize)

	opReadFanSpeed1        = ioctl.IOR(magicRead, 0x10, ioctl.PointerSize)
	opReadFanSpeed2        = ioctl.IOR(magicRead, 0x11, ioctl.PointerSize)
	opReadFanTemp1         = ioctl.IOR(magicRead, 0x12, ioctl.PointerSize)
	opReadFanTemp2         = ioctl.IOR(magicRead, 0x13, ioctl.PointerSize)
	opReadMode             = ioctl.IOR(magicRead, 0x14, ioctl.PointerSize)
	opReadModeEnable       = ioctl.IOR(magicRead, 0x15, ioctl.PointerSize)
	opReadFansOffAvailable = ioctl.IOR(magicRead, 0x16, ioctl.PointerSize)
	opReadFansMinSpeed     = ioctl.IOR(magicRead, 0x17, ioctl.PointerSize)
	opReadTDP0             = ioctl.IOR(magicRead, 0x18, ioctl.PointerSize)
	opReadTDP1             = ioctl.IOR(magicRead, 0x19, ioctl.PointerSize)
	opReadTDP2             = ioctl.IOR(magicRead, 0x1A, ioctl.PointerSize)
	opReadTDP0Min          = ioctl.IOR(magicRead, 0x1B, ioctl.PointerSize)
	opReadTDP1Min          = ioctl.IOR(magicRead, 0x1C, ioctl.PointerSize)
	opReadTDP2Min          = ioctl.IOR(magicRead, 0x1D, ioctl.PointerSize)
	opReadTDP0Max          = ioctl.IOR(magicRead, 0x1E, ioctl.PointerSize)
	opReadTDP1Max          = ioctl.IOR(magicRead, 0x1F, ioctl.PointerSize)
	opReadTDP2Max          = ioctl.IOR(magicRead, 0x20, ioctl.PointerSize)

	opWriteFanSpeed1   = ioctl.IOW(magicWrite, 0x10, ioctl.PointerSize)
	opWriteFanSpeed2   = ioctl.IOW(magicWrite, 0x11, ioctl.PointerSize)
	opWriteMode        = ioctl.IOW(magicWrite, 0x12, ioctl.PointerSize)
	opWriteModeEnable  = ioctl.IOW(magicWrite, 0x13, ioctl.PointerSize)
	opWriteFansAuto    = ioctl.IO(magicWrite, 0x14)
	opWriteTDP0        = ioctl.IOW(magicWrite, 0x15, ioctl.PointerSize)
	opWriteTDP1        = ioctl.IOW(magicWrite, 0x16, ioctl.PointerSize)
	opWriteTDP2        = ioctl.IOW(magicWrite, 0x17, ioctl.PointerSize)
	opWritePerfProfile = ioctl.IOW(magicWrite, 0x18, ioctl.PointerSize)
)
