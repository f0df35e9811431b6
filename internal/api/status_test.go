package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrodl/ffibulk/internal/engine"
	"github.com/astrodl/ffibulk/internal/logger"
)

func newTestServer(t *testing.T) (*StatusServer, *engine.Progress) {
	t.Helper()

	log, err := logger.New(filepath.Join(t.TempDir(), "test.log"), logger.LevelDebug, false)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	progress := engine.NewProgress()
	return NewStatusServer(":0", progress, log), progress
}

func TestStatusEndpoint(t *testing.T) {
	srv, progress := newTestServer(t)

	progress.Reset(4)
	progress.ItemCompleted()
	progress.ItemFailed("bad.fits", "file fetch failed")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(4), snap.Total)
	assert.Equal(t, uint64(1), snap.Completed)
	assert.Equal(t, uint64(1), snap.Failed)
}

func TestFailuresEndpoint(t *testing.T) {
	srv, progress := newTestServer(t)

	progress.Reset(1)
	progress.ItemFailed("bad.fits", "file fetch failed: 404")

	req := httptest.NewRequest(http.MethodGet, "/failures", nil)
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var failures []engine.Failure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "bad.fits", failures[0].FileName)
}
