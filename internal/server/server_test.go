package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tuxedoctl/internal/control"
	"tuxedoctl/internal/device"
	"tuxedoctl/internal/errors"
	"tuxedoctl/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu        sync.Mutex
	speeds    map[device.FanChannel]device.Duty
	autoCalls int
	closed    bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		speeds: map[device.FanChannel]device.Duty{device.Fan1: 35, device.Fan2: 35},
	}
}

func (f *fakeHandle) FanMinSpeed() (device.Duty, error) { return 20, nil }
func (f *fakeHandle) FanMaxSpeed() device.Duty          { return 100 }

func (f *fakeHandle) FanSpeed(channel device.FanChannel) (device.Duty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speeds[channel], nil
}

func (f *fakeHandle) SetFanSpeed(channel device.FanChannel, duty device.Duty) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds[channel] = duty
	return nil
}

func (f *fakeHandle) SetFansAuto() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoCalls++
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) autoCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoCalls
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeHandle) {
	t.Helper()

	h := newFakeHandle()
	m := control.New(control.WithOpener(func() (device.Controller, error) {
		return h, nil
	}))
	srv := httptest.NewServer(server.Handler(m))
	t.Cleanup(srv.Close)
	t.Cleanup(m.Close)

	return srv, h
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Error
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var health control.HealthInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, control.ServiceID, health.Name)
	assert.Equal(t, "ok", health.Status)
}

func TestListDevices(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/devices")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Devices []control.Descriptor `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Devices, 1)
	assert.Len(t, body.Devices[0].Channels, 2)
}

func TestStatus(t *testing.T) {
	srv, h := newTestServer(t)
	h.speeds[device.Fan2] = 70

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status []control.ChannelStatus `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Status, 2)
	assert.Equal(t, device.Duty(70), body.Status[1].Duty)
}

func putJSON(t *testing.T, url, payload string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(payload))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func TestSetDuty(t *testing.T) {
	srv, h := newTestServer(t)

	resp := putJSON(t, srv.URL+"/channels/fan1/duty", `{"duty": 55}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := h.FanSpeed(device.Fan1)
	require.NoError(t, err)
	assert.Equal(t, device.Duty(55), got)
}

func TestSetDutyUnknownChannel(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := putJSON(t, srv.URL+"/channels/fan9/duty", `{"duty": 55}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(errors.ErrInvalidChannel), decodeError(t, resp))
}

func TestSetDutyMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := putJSON(t, srv.URL+"/channels/fan1/duty", `{`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetChannel(t *testing.T) {
	srv, h := newTestServer(t)

	resp, err := http.Post(srv.URL+"/channels/fan2/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, h.autoCallCount())
}

func TestUnsupportedCapabilities(t *testing.T) {
	srv, _ := newTestServer(t)

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/channels/fan1/profile"},
		{http.MethodPut, "/lighting"},
		{http.MethodPut, "/lcd"},
		{http.MethodPost, "/custom"},
	}

	for _, target := range targets {
		req, err := http.NewRequest(target.method, srv.URL+target.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode, target.path)
		assert.Equal(t, string(errors.ErrUnsupportedCapability), decodeError(t, resp), target.path)
		resp.Body.Close()
	}
}

func TestShutdownThenStatusReopens(t *testing.T) {
	srv, h := newTestServer(t)

	// Open a handle by polling once.
	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/shutdown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 1, h.autoCallCount())
	assert.True(t, h.isClosed())

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
}
