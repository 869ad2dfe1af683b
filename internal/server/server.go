// Package server exposes the device operations as a JSON API on a unix
// domain socket. It owns transport concerns only; all hardware semantics
// live in the control package.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"tuxedoctl/internal/control"
	"tuxedoctl/internal/errors"
	"tuxedoctl/internal/logger"

	"github.com/google/uuid"
)

const shutdownGrace = 5 * time.Second

// statusForCode maps domain error codes onto HTTP statuses.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidChannel, errors.ErrInvalidDuty, errors.ErrInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrUnsupportedCapability, errors.ErrNotImplemented:
		return http.StatusNotImplemented
	case errors.ErrDeviceUnavailable, errors.ErrHardwareUnsupported:
		return http.StatusServiceUnavailable
	case errors.ErrTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type dutyRequest struct {
	Duty int `json:"duty"`
}

// Handler builds the route table over the manager.
func Handler(m *control.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, m.Health(r.Context()))
	})

	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		devices, err := m.ListDevices(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
	})

	mux.HandleFunc("/devices/initialize", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := m.InitializeDevice(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		status, err := m.Status(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status})
	})

	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := m.Shutdown(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	})

	mux.HandleFunc("/fans/manual", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		if err := m.EnableManualFanControl(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	})

	mux.HandleFunc("/channels/", func(w http.ResponseWriter, r *http.Request) {
		channelID, action, ok := splitChannelPath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch action {
		case "duty":
			if !allowMethod(w, r, http.MethodPut) {
				return
			}
			var req dutyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, errors.New().Wrap(errors.ErrInvalidArgument, err))
				return
			}
			if err := m.SetFixedDuty(r.Context(), channelID, req.Duty); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, struct{}{})
		case "reset":
			if !allowMethod(w, r, http.MethodPost) {
				return
			}
			if err := m.ResetChannel(r.Context(), channelID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, struct{}{})
		case "profile":
			if !allowMethod(w, r, http.MethodPut) {
				return
			}
			writeError(w, m.SpeedProfile(r.Context()))
		default:
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/lighting", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPut) {
			return
		}
		writeError(w, m.Lighting(r.Context()))
	})

	mux.HandleFunc("/lcd", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPut) {
			return
		}
		writeError(w, m.Lcd(r.Context()))
	})

	mux.HandleFunc("/custom", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		writeError(w, m.CustomFunctionOne(r.Context()))
	})

	return withRequestID(mux)
}

// withRequestID tags every request with a correlation id for the logs and
// the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}

// splitChannelPath parses /channels/<id>/<action>.
func splitChannelPath(path string) (channelID, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/channels/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	writeJSON(w, statusForCode(code), errorResponse{
		Error:   string(code),
		Message: err.Error(),
	})
}

// Serve binds the unix socket and serves until ctx is cancelled, then
// shuts the listener down gracefully and removes the socket file.
func Serve(ctx context.Context, socketPath string, handler http.Handler) error {
	errFactory := errors.New()

	// A stale socket from an unclean exit blocks the bind.
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	logger.Info().Str("socket", socketPath).Msg("Serving device API")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Graceful shutdown incomplete, closing")
			srv.Close()
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			os.Remove(socketPath)
			return errFactory.Wrap(errors.ErrInternal, err)
		}
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Failed to remove socket file")
	}

	return nil
}
