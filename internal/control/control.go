// Package control owns the single hardware handle and serializes all
// access to it. Every externally visible operation maps onto handle
// acquisition plus one typed handle call under the manager's lock.
package control

import (
	"context"
	"os"
	"strings"
	"time"

	"tuxedoctl/internal/device"
	"tuxedoctl/internal/errors"
	"tuxedoctl/internal/logger"
	"tuxedoctl/internal/telemetry"
)

const (
	deviceID           = "tuxedo"
	fallbackDeviceName = "TUXEDO InfinityBook Gen10"
	productNamePath    = "/sys/class/dmi/id/product_name"
)

// Opener produces a fresh hardware handle. Substituted in tests.
type Opener func() (device.Controller, error)

// Manager lazily opens the hardware handle on first use and guards it with
// one mutex. The lock is held for the full duration of each hardware
// operation, so at most one driver call is ever in flight. Driver calls
// block until the embedded controller acknowledges; callers must expect
// observable latency and may not cancel a call once dispatched.
type Manager struct {
	mu        chan struct{} // see lock(); a channel so acquisition honors context cancellation
	handle    device.Controller
	opener    Opener
	collector telemetry.Collector
	autoMode  bool
	started   time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithOpener substitutes the handle constructor. Used by tests to run
// against a fake handle.
func WithOpener(opener Opener) Option {
	return func(m *Manager) {
		m.opener = opener
	}
}

// WithCollector attaches a telemetry collector; each successful status
// poll is recorded to it.
func WithCollector(collector telemetry.Collector) Option {
	return func(m *Manager) {
		m.collector = collector
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		mu: make(chan struct{}, 1),
		opener: func() (device.Controller, error) {
			h, err := device.Open()
			if err != nil {
				return nil, err
			}
			return h, nil
		},
		collector: nil,
		autoMode:  true,
		started:   time.Now(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// lock acquires the manager mutex, giving up early if ctx is cancelled
// before the slot frees up. An in-flight driver call is never interrupted.
func (m *Manager) lock(ctx context.Context) error {
	select {
	case m.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
	}
}

func (m *Manager) unlock() {
	<-m.mu
}

// acquireLocked returns the held handle, opening one if none is held.
// A failed open leaves the slot empty; the next call retries.
func (m *Manager) acquireLocked() (device.Controller, error) {
	if m.handle != nil {
		return m.handle, nil
	}

	h, err := m.opener()
	if err != nil {
		return nil, err
	}
	m.handle = h

	return h, nil
}

// withHandle runs fn with the (lazily opened) handle while holding the
// manager lock.
func (m *Manager) withHandle(ctx context.Context, fn func(device.Controller) error) error {
	if err := m.lock(ctx); err != nil {
		return err
	}
	defer m.unlock()

	h, err := m.acquireLocked()
	if err != nil {
		return err
	}

	return fn(h)
}

// Health reports service identity. Never touches hardware.
func (m *Manager) Health(_ context.Context) HealthInfo {
	return HealthInfo{
		Name:          ServiceID,
		Version:       Version,
		Status:        "ok",
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
	}
}

// ListDevices enumerates the device with channel bounds read from live
// hardware.
func (m *Manager) ListDevices(ctx context.Context) ([]Descriptor, error) {
	var bounds device.SpeedBounds

	err := m.withHandle(ctx, func(h device.Controller) error {
		minDuty, err := h.FanMinSpeed()
		if err != nil {
			return err
		}
		bounds = device.SpeedBounds{Min: minDuty, Max: h.FanMaxSpeed()}

		return nil
	})
	if err != nil {
		return nil, err
	}

	descriptor := Descriptor{
		ID:   deviceID,
		Name: productName(),
		Channels: map[string]ChannelInfo{
			Fan1ChannelID: {Label: "Fan 1", Bounds: bounds, FixedEnabled: true},
			Fan2ChannelID: {Label: "Fan 2", Bounds: bounds, FixedEnabled: true},
		},
	}

	return []Descriptor{descriptor}, nil
}

// InitializeDevice opens the handle eagerly so later calls start from a
// verified device. There is no further per-device setup; the firmware
// keeps control until a fixed duty is set.
func (m *Manager) InitializeDevice(ctx context.Context) error {
	return m.withHandle(ctx, func(device.Controller) error {
		return nil
	})
}

// Status reads the current duty of both fans.
func (m *Manager) Status(ctx context.Context) ([]ChannelStatus, error) {
	var (
		status   []ChannelStatus
		autoMode bool
	)

	err := m.withHandle(ctx, func(h device.Controller) error {
		fan1, err := h.FanSpeed(device.Fan1)
		if err != nil {
			return err
		}
		fan2, err := h.FanSpeed(device.Fan2)
		if err != nil {
			return err
		}

		status = []ChannelStatus{
			{Channel: Fan1ChannelID, Duty: fan1},
			{Channel: Fan2ChannelID, Duty: fan2},
		}
		autoMode = m.autoMode

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, status, autoMode)

	return status, nil
}

// SetFixedDuty commands one fan to a fixed duty. Manual control activates
// implicitly in the firmware. Blocks until the fan reaches the target.
func (m *Manager) SetFixedDuty(ctx context.Context, channelID string, duty int) error {
	errFactory := errors.New()

	channel, ok := channelByID(channelID)
	if !ok {
		return errFactory.WithData(errors.ErrInvalidChannel, channelID)
	}
	if duty < 0 || duty > 100 {
		return errFactory.WithData(errors.ErrInvalidDuty, duty)
	}

	return m.withHandle(ctx, func(h device.Controller) error {
		if err := h.SetFanSpeed(channel, device.Duty(duty)); err != nil {
			return err
		}
		m.autoMode = false

		return nil
	})
}

// ResetChannel returns fan control to the firmware. The driver only
// supports resetting both fans at once, so any valid channel id resets
// both.
func (m *Manager) ResetChannel(ctx context.Context, channelID string) error {
	if _, ok := channelByID(channelID); !ok {
		return errors.New().WithData(errors.ErrInvalidChannel, channelID)
	}

	return m.withHandle(ctx, func(h device.Controller) error {
		if err := h.SetFansAuto(); err != nil {
			return err
		}
		m.autoMode = true

		return nil
	})
}

// EnableManualFanControl is a protocol acknowledgment. Manual mode
// activates on the next SetFixedDuty; no hardware is touched here.
func (m *Manager) EnableManualFanControl(_ context.Context) error {
	return nil
}

// SpeedProfile is not offered by this hardware. Never opens the handle.
func (m *Manager) SpeedProfile(_ context.Context) error {
	return errors.New().WithMessage(errors.ErrUnsupportedCapability, "No firmware profiles")
}

// Lighting is not offered by this hardware. Never opens the handle.
func (m *Manager) Lighting(_ context.Context) error {
	return errors.New().WithMessage(errors.ErrUnsupportedCapability, "No lighting channels")
}

// Lcd is not offered by this hardware. Never opens the handle.
func (m *Manager) Lcd(_ context.Context) error {
	return errors.New().WithMessage(errors.ErrUnsupportedCapability, "No LCD channels")
}

// CustomFunctionOne is not offered by this hardware. Never opens the
// handle.
func (m *Manager) CustomFunctionOne(_ context.Context) error {
	return errors.New().WithMessage(errors.ErrUnsupportedCapability, "No custom function")
}

// Shutdown returns the fans to firmware control and releases the handle.
// A no-op success when no handle is held. The manager stays usable: the
// next hardware-touching call opens a fresh handle.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.lock(ctx); err != nil {
		return err
	}
	defer m.unlock()

	return m.releaseLocked()
}

// Close is the teardown safety net: identical to Shutdown but best-effort.
// Errors are logged and swallowed since no caller remains to report to.
// The return-to-automatic attempt is made at most once per held handle.
func (m *Manager) Close() {
	m.mu <- struct{}{}
	defer m.unlock()

	if err := m.releaseLocked(); err != nil {
		logger.Error().Err(err).Msg("Failed to release device handle cleanly")
	}
}

// releaseLocked performs the shutdown transition: fans to auto, then close
// the descriptor. The close happens even when the auto signal fails; the
// handle must not outlive this call.
func (m *Manager) releaseLocked() error {
	if m.handle == nil {
		return nil
	}

	errFactory := errors.New()

	autoErr := m.handle.SetFansAuto()
	closeErr := m.handle.Close()
	m.handle = nil
	m.autoMode = true

	if autoErr != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, autoErr)
	}
	if closeErr != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, closeErr)
	}

	logger.Debug().Msg("Device handle released, fans back in automatic mode")

	return nil
}

func (m *Manager) record(ctx context.Context, status []ChannelStatus, autoMode bool) {
	if m.collector == nil || len(status) < 2 {
		return
	}

	sample := &telemetry.Sample{
		Timestamp: time.Now(),
		Fan1Duty:  int(status[0].Duty),
		Fan2Duty:  int(status[1].Duty),
		AutoMode:  autoMode,
	}
	if err := m.collector.Record(ctx, sample); err != nil {
		logger.Warn().Err(err).Msg("Failed to record status sample")
	}
}

// productName reads the DMI product name for the device display name.
func productName() string {
	data, err := os.ReadFile(productNamePath)
	if err != nil {
		return fallbackDeviceName
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return fallbackDeviceName
	}

	return name
}
