package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var errStreamingUnsupported = errors.New("SSE not supported")

// sseStream writes Server-Sent Events with a write deadline per event.
//
// Without deadlines, a blocked write to a slow or disconnected client would
// keep the handler from noticing context cancellation or channel closure.
type sseStream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger

	// write deadlines may not be supported by some ResponseWriter impls
	deadlinesSupported bool
}

// newSSEStream sets the SSE headers. It fails if w cannot flush.
func newSSEStream(w http.ResponseWriter, logger *slog.Logger) (*sseStream, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, errStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &sseStream{
		w:                  w,
		rc:                 http.NewResponseController(w),
		logger:             logger,
		deadlinesSupported: true,
	}, nil
}

// send writes one event. An empty event name sends a bare data message.
func (s *sseStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("sse payload not encodable", "event", event, "error", err)
		return nil
	}

	if s.deadlinesSupported {
		if err := s.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			// deadline not supported by underlying connection, continue without
			s.logger.Warn("sse write deadlines not supported", "error", err)
			s.deadlinesSupported = false
		}
	}

	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	// ResponseController.Flush respects the write deadline
	return s.rc.Flush()
}

// handleEvents streams history changes via Server-Sent Events.
//
// Every successful write to the history store is announced as a "change"
// event carrying the storage key, so the dashboard reloads only the panel
// that changed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	stream, err := newSSEStream(w, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)

	if err := stream.send("ready", map[string]time.Time{"at": s.backend.Now()}); err != nil {
		return
	}

	for {
		select {
		case change, ok := <-ch:
			if !ok {
				return
			}
			if err := stream.send("change", change); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// handleRunSpeedTest runs a speed test and streams its events.
//
// Each sampler event is sent under its type name. The stream ends with a
// "result" event carrying the stored record, or an "error" event if the
// client went away first.
func (s *Server) handleRunSpeedTest(w http.ResponseWriter, r *http.Request) {
	if !s.speedTesting.CompareAndSwap(false, true) {
		s.writeError(w, http.StatusConflict, "a speed test is already running")
		return
	}
	defer s.speedTesting.Store(false)

	stream, err := newSSEStream(w, s.logger)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := s.backend.StartSpeedTest(r.Context())

	streaming := true
	for ev := range run.Events() {
		if !streaming {
			continue // keep draining so the run is not starved
		}
		if err := stream.send(string(ev.Type), ev); err != nil {
			streaming = false
		}
	}

	res, err := run.Wait()
	if !streaming {
		return
	}
	if err != nil {
		_ = stream.send("error", map[string]string{"error": err.Error()})
		return
	}
	_ = stream.send("result", res.Record)
}
