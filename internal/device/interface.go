package device

// Controller is the typed operation surface of an open hardware handle.
type Controller interface {
	FanMinSpeed() (Duty, error)
	FanMaxSpeed() Duty
	FanSpeed(channel FanChannel) (Duty, error)
	SetFanSpeed(channel FanChannel, duty Duty) error
	SetFansAuto() error
	Close() error
}

// transport performs raw driver transfers against an open descriptor.
// Abstracted so tests can substitute a fake driver.
type transport interface {
	ReadInt(fd, op uintptr) (int32, error)
	WriteInt(fd, op uintptr, value int32) error
	Signal(fd, op uintptr) error
}

// Domain types for type safety and validation
type (
	// Duty is a commanded or observed fan speed as a percentage of maximum.
	Duty int

	// FanChannel identifies one of the two embedded-controller fans.
	FanChannel int

	// SpeedBounds is the safe operating range callers should respect when
	// offering manual control, in Duty units.
	SpeedBounds struct {
		Min, Max Duty
	}
)

const (
	Fan1 FanChannel = iota
	Fan2
)

func (c FanChannel) String() string {
	switch c {
	case Fan1:
		return "fan1"
	case Fan2:
		return "fan2"
	default:
		return "unknown"
	}
}

// Valid reports whether c names an existing fan.
func (c FanChannel) Valid() bool {
	return c == Fan1 || c == Fan2
}
