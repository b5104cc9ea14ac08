package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

const keepAlivePeriod = 15 * time.Second

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteComment sends a comment line that keeps idle proxies from closing the stream.
func (s *SSEWriter) WriteComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// handleJobEvents streams the status view of a job as "status" events and
// ends with a "complete" event once the job is terminal.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)

	keepAlive := time.NewTicker(keepAlivePeriod)
	defer keepAlive.Stop()

	err = s.watch(r.Context(), id, keepAlive.C, func(view jobs.StatusView) error {
		event := "status"
		if view.Status.IsTerminal() {
			event = "complete"
		}
		return sse.WriteEvent(event, view)
	}, func() error {
		return sse.WriteComment("keep-alive")
	})
	if err != nil && r.Context().Err() == nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Event stream ended early")
		sse.WriteError(err.Error())
	}
}

// watch sends the current view of job id, then every change, until the job is
// terminal. Changes arrive from the hub; the store is re-read on every resync
// tick so dropped or missing hub snapshots never stall the stream.
func (s *Server) watch(ctx context.Context, id string, idle <-chan time.Time, send func(jobs.StatusView) error, ping func() error) error {
	var updates <-chan *types.Job
	if s.hub != nil {
		ch, cancel := s.hub.Subscribe(id)
		defer cancel()
		updates = ch
	}

	resync := time.NewTicker(s.resyncPeriod)
	defer resync.Stop()

	var (
		last    *jobs.StatusView
		lastMod time.Time
	)
	emit := func(job *types.Job) (bool, error) {
		if job.UpdatedAt.Before(lastMod) {
			return false, nil
		}
		view := jobs.Project(job)
		if last != nil && sameView(*last, view) {
			return false, nil
		}
		if last != nil && stale(*last, view) {
			return false, nil
		}
		last, lastMod = &view, job.UpdatedAt
		if err := send(view); err != nil {
			return false, err
		}
		return view.Status.IsTerminal(), nil
	}

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if done, err := emit(job); done || err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if done, err := emit(job); done || err != nil {
				return err
			}
		case <-resync.C:
			job, err := s.store.Get(ctx, id)
			if err != nil {
				return err
			}
			if done, err := emit(job); done || err != nil {
				return err
			}
		case <-idle:
			if ping != nil {
				if err := ping(); err != nil {
					return err
				}
			}
		}
	}
}

// stale reports whether next is older than prev. Hub snapshots can arrive
// after a newer resync read.
func stale(prev, next jobs.StatusView) bool {
	if next.Status.Rank() != prev.Status.Rank() {
		return next.Status.Rank() < prev.Status.Rank()
	}
	return next.Progress < prev.Progress
}

func sameView(a, b jobs.StatusView) bool {
	return a.Status == b.Status && a.Progress == b.Progress && a.CurrentStep == b.CurrentStep
}
