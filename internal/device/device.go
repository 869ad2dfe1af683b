// Package device owns the privileged handle to the tuxedo_io device node
// and translates raw driver transfers into typed fan operations.
package device

import (
	"math"
	"os"

	"tuxedoctl/internal/errors"
	"tuxedoctl/internal/ioctl"
	"tuxedoctl/internal/logger"
)

const (
	// DevicePath is the driver's device node. Fixed hardware contract,
	// not configurable.
	DevicePath = "/dev/tuxedo_io"

	// hardwareCompatible is the code the hardware check returns on the
	// embedded-controller generation this driver targets.
	hardwareCompatible = 1

	// maxRawFanSpeed is the driver's native fan speed ceiling. Both fans
	// share the same scale.
	maxRawFanSpeed = 0xC8

	// maxDuty is the fixed percentage ceiling. The driver exposes no
	// separate maximum beyond the conversion constant.
	maxDuty Duty = 100
)

// Handle exclusively owns one open descriptor to the device node. At most
// one live Handle should exist per process; the device node assumes a
// single controlling client.
type Handle struct {
	f  *os.File
	tr transport
}

// sysTransport issues real ioctl system calls.
type sysTransport struct{}

func (sysTransport) ReadInt(fd, op uintptr) (int32, error) {
	return ioctl.ReadInt(fd, op)
}

func (sysTransport) WriteInt(fd, op uintptr, value int32) error {
	return ioctl.WriteInt(fd, op, value)
}

func (sysTransport) Signal(fd, op uintptr) error {
	return ioctl.Signal(fd, op)
}

// Open opens the device node read-write and verifies the hardware
// generation. Requires root or equivalent access to the node.
func Open() (*Handle, error) {
	return open(DevicePath, sysTransport{})
}

func open(path string, tr transport) (*Handle, error) {
	errFactory := errors.New()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrDeviceUnavailable, err)
	}

	h := &Handle{f: f, tr: tr}

	code, err := tr.ReadInt(h.fd(), opHardwareCheck)
	if err != nil {
		f.Close()
		return nil, errFactory.Wrap(errors.ErrDriverError, err)
	}

	if code != hardwareCompatible {
		f.Close()
		return nil, errFactory.WithData(errors.ErrHardwareUnsupported, code)
	}

	logger.Debug().Str("path", path).Msg("Device handle opened")

	return h, nil
}

func (h *Handle) fd() uintptr {
	return h.f.Fd()
}

// FanMinSpeed returns the minimum recommended fan duty for all fans.
func (h *Handle) FanMinSpeed() (Duty, error) {
	raw, err := h.tr.ReadInt(h.fd(), opReadFansMinSpeed)
	if err != nil {
		return 0, errors.New().Wrap(errors.ErrDriverError, err)
	}

	return rawToDuty(raw), nil
}

// FanMaxSpeed returns the fixed duty ceiling. The driver does not expose a
// maximum separately from the conversion constant, so no hardware call is
// made.
func (h *Handle) FanMaxSpeed() Duty {
	return maxDuty
}

// FanSpeed returns the current duty of the given fan.
func (h *Handle) FanSpeed(channel FanChannel) (Duty, error) {
	errFactory := errors.New()

	var op uintptr
	switch channel {
	case Fan1:
		op = opReadFanSpeed1
	case Fan2:
		op = opReadFanSpeed2
	default:
		return 0, errFactory.WithData(errors.ErrInvalidChannel, channel)
	}

	raw, err := h.tr.ReadInt(h.fd(), op)
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrDriverError, err)
	}

	return rawToDuty(raw), nil
}

// SetFanSpeed commands the given fan to the requested duty. The driver does
// not return until the fan physically reaches the target, so this call can
// block for observable wall-clock time.
func (h *Handle) SetFanSpeed(channel FanChannel, duty Duty) error {
	errFactory := errors.New()

	if duty < 0 || duty > maxDuty {
		return errFactory.WithData(errors.ErrInvalidDuty, duty)
	}

	var op uintptr
	switch channel {
	case Fan1:
		op = opWriteFanSpeed1
	case Fan2:
		op = opWriteFanSpeed2
	default:
		return errFactory.WithData(errors.ErrInvalidChannel, channel)
	}

	if err := h.tr.WriteInt(h.fd(), op, dutyToRaw(duty)); err != nil {
		return errFactory.Wrap(errors.ErrDriverError, err)
	}

	logger.Debug().Str("channel", channel.String()).Int("duty", int(duty)).Msg("Fan speed set")

	return nil
}

// SetFansAuto returns both fans to firmware control. The driver does not
// support per-channel auto mode.
func (h *Handle) SetFansAuto() error {
	if err := h.tr.Signal(h.fd(), opWriteFansAuto); err != nil {
		return errors.New().Wrap(errors.ErrDriverError, err)
	}

	logger.Debug().Msg("Fans returned to automatic mode")

	return nil
}

// Close releases the descriptor. Callers are expected to have issued
// SetFansAuto first; Close itself does not touch fan state.
func (h *Handle) Close() error {
	return h.f.Close()
}

// Driver-native speed units and duty percentages are interchangeable
// through the fixed ceiling constant. Rounding loss of at most one unit is
// tolerated in either direction.
func dutyToRaw(duty Duty) int32 {
	return int32(math.Round(maxRawFanSpeed * float64(duty) / 100))
}

func rawToDuty(raw int32) Duty {
	return Duty(math.Round(float64(raw) * 100 / maxRawFanSpeed))
}
