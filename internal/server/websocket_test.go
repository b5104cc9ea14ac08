package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

type wsStatus struct {
	Type    string          `json:"type"`
	Payload jobs.StatusView `json:"payload"`
}

func dialJob(t *testing.T, srv *httptest.Server, id string, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/jobs/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestJobSocket_PushesUntilComplete(t *testing.T) {
	ts := newTestServer(t)
	job := ts.createJob(t, "Acme Cafe")
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	conn := dialJob(t, srv, job.ID, nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first wsStatus
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "status", first.Type)
	assert.Equal(t, types.StatusPending, first.Payload.Status)

	ts.complete(t, job.ID)

	var msgs []wsStatus
	for {
		var msg wsStatus
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		msgs = append(msgs, msg)
	}

	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "complete", last.Type)
	assert.Equal(t, types.StatusComplete, last.Payload.Status)
	assert.Equal(t, 100, last.Payload.Progress)
}

func TestJobSocket_UnknownJob(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/jobs/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobSocket_RejectsDisallowedOrigin(t *testing.T) {
	ts := newTestServer(t, func(d *Deps) { d.Config.CORSOrigins = []string{"https://app.example.com"} })
	job := ts.createJob(t, "Acme Cafe")
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/jobs/" + job.ID + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialJob(t, srv, job.ID, http.Header{"Origin": {"https://app.example.com"}})
	_, err = ts.store.Merge(context.Background(), job.ID, jobs.Fail("Deployment timed out"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wsStatus
	for msg.Type != "complete" {
		require.NoError(t, conn.ReadJSON(&msg))
	}
	assert.Equal(t, types.StatusFailed, msg.Payload.Status)
	assert.Equal(t, "Deployment timed out", msg.Payload.Error)
}
