package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrodl/ffibulk/internal/domain"
	"github.com/astrodl/ffibulk/internal/fetch"
	"github.com/astrodl/ffibulk/internal/logger"
	"github.com/astrodl/ffibulk/internal/testutils"
)

// fakeLedger collects RecordItem calls.
type fakeLedger struct {
	mu    sync.Mutex
	items []domain.RunItem
}

func (f *fakeLedger) RecordItem(item domain.RunItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeLedger) byStatus(status domain.ItemStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// countingServer serves FITS payloads and tracks hits per path. Paths
// listed in corruptHits serve a truncated body for that many requests
// before turning healthy.
type countingServer struct {
	mu          sync.Mutex
	hits        map[string]int
	corruptHits map[string]int
	payload     []byte
	srv         *httptest.Server
}

func newCountingServer(t *testing.T) *countingServer {
	t.Helper()

	cs := &countingServer{
		hits:        map[string]int{},
		corruptHits: map[string]int{},
		payload:     testutils.ImageFITS(t, 32, 32),
	}

	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.hits[r.URL.Path]++
		corrupt := cs.corruptHits[r.URL.Path] > 0
		if corrupt {
			cs.corruptHits[r.URL.Path]--
		}
		cs.mu.Unlock()

		if strings.HasSuffix(r.URL.Path, "missing.fits") {
			http.NotFound(w, r)
			return
		}
		if corrupt {
			w.Write(cs.payload[:1000])
			return
		}
		w.Write(cs.payload)
	}))
	t.Cleanup(cs.srv.Close)

	return cs
}

func (cs *countingServer) hitCount(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.hits[path]
}

func (cs *countingServer) item(t *testing.T, outDir, name string) domain.WorkItem {
	t.Helper()
	dest := filepath.Join(outDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	return domain.WorkItem{
		SourceURL: cs.srv.URL + "/" + name,
		DestPath:  dest,
		FileName:  name,
	}
}

func newTestEngine(t *testing.T, ledger Ledger) (*Engine, *Progress) {
	t.Helper()

	log, err := logger.New(filepath.Join(t.TempDir(), "test.log"), logger.LevelDebug, false)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	progress := NewProgress()
	eng := New(afero.NewOsFs(), fetch.NewClient(4), log, ledger, progress)
	return eng, progress
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			assert.False(t, strings.HasSuffix(path, ".tmp"), "leftover temp file %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRunDownloadsAllItems(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	var items []domain.WorkItem
	for i := 0; i < 8; i++ {
		items = append(items, cs.item(t, outDir, fmt.Sprintf("ffi-%d.fits", i)))
	}

	ledger := &fakeLedger{}
	eng, _ := newTestEngine(t, ledger)

	summary, err := eng.Run(t.Context(), "run-1", items, 4, false)
	require.NoError(t, err)

	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 8, summary.Completed)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Skipped)

	for _, item := range items {
		data, err := os.ReadFile(item.DestPath)
		require.NoError(t, err)
		assert.Equal(t, cs.payload, data)
	}

	assertNoTempFiles(t, outDir)
	assert.Equal(t, 8, ledger.byStatus(domain.StatusCompleted))
}

func TestRunSkipsExistingWithoutFetching(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	item := cs.item(t, outDir, "already.fits")
	require.NoError(t, os.WriteFile(item.DestPath, []byte("present"), 0644))

	eng, _ := newTestEngine(t, nil)

	summary, err := eng.Run(t.Context(), "run-1", []domain.WorkItem{item}, 2, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, cs.hitCount("/already.fits"), "skip must make no network call")

	// Second-run idempotence: untouched content.
	data, err := os.ReadFile(item.DestPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("present"), data)
}

func TestRunClobberRedownloads(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	item := cs.item(t, outDir, "stale.fits")
	require.NoError(t, os.WriteFile(item.DestPath, []byte("stale"), 0644))

	eng, _ := newTestEngine(t, nil)

	summary, err := eng.Run(t.Context(), "run-1", []domain.WorkItem{item}, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, cs.hitCount("/stale.fits"))

	data, err := os.ReadFile(item.DestPath)
	require.NoError(t, err)
	assert.Equal(t, cs.payload, data)
}

func TestRunRetriesValidationFailures(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	item := cs.item(t, outDir, "flaky.fits")
	cs.corruptHits["/flaky.fits"] = 3

	eng, _ := newTestEngine(t, nil)

	summary, err := eng.Run(t.Context(), "run-1", []domain.WorkItem{item}, 1, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 4, cs.hitCount("/flaky.fits"), "three corrupted attempts plus the clean one")

	// The file placed is the successful attempt's content; no corrupted
	// attempt left anything behind.
	data, err := os.ReadFile(item.DestPath)
	require.NoError(t, err)
	assert.Equal(t, cs.payload, data)
	assertNoTempFiles(t, outDir)
}

func TestRunIsolatesFetchFailures(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	good := cs.item(t, outDir, "good.fits")
	bad := cs.item(t, outDir, "missing.fits")

	ledger := &fakeLedger{}
	eng, progress := newTestEngine(t, ledger)

	summary, err := eng.Run(t.Context(), "run-1", []domain.WorkItem{bad, good}, 2, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Failed)

	_, statErr := os.Stat(good.DestPath)
	assert.NoError(t, statErr, "good item must complete despite the failed one")
	_, statErr = os.Stat(bad.DestPath)
	assert.True(t, os.IsNotExist(statErr), "failed item must not leave a file")

	assert.Equal(t, 1, cs.hitCount("/missing.fits"), "fetch errors are terminal, not retried")
	assert.Equal(t, 1, ledger.byStatus(domain.StatusFailed))

	failures := progress.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "missing.fits", failures[0].FileName)
}

// statErrFs fails Stat for one path so the exists check cannot answer.
type statErrFs struct {
	afero.Fs
	failPath string
}

func (f statErrFs) Stat(name string) (os.FileInfo, error) {
	if name == f.failPath {
		return nil, fmt.Errorf("stat blocked")
	}
	return f.Fs.Stat(name)
}

func TestRunCancellationReturnsPromptly(t *testing.T) {
	payload := testutils.ImageFITS(t, 32, 32)

	// Slow responses keep plenty of items queued and in flight at the
	// moment of cancellation.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write(payload)
	}))
	defer srv.Close()

	outDir := t.TempDir()
	var items []domain.WorkItem
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("slow-%d.fits", i)
		items = append(items, domain.WorkItem{
			SourceURL: srv.URL + "/" + name,
			DestPath:  filepath.Join(outDir, name),
			FileName:  name,
		})
	}

	eng, _ := newTestEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(60*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := eng.Run(ctx, "run-1", items, 4, false)
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunFetchesWhenExistsCheckFails(t *testing.T) {
	cs := newCountingServer(t)
	outDir := t.TempDir()

	item := cs.item(t, outDir, "unstattable.fits")
	require.NoError(t, os.WriteFile(item.DestPath, []byte("present"), 0644))

	logPath := filepath.Join(t.TempDir(), "test.log")
	log, err := logger.New(logPath, logger.LevelDebug, false)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	fs := statErrFs{Fs: afero.NewOsFs(), failPath: item.DestPath}
	eng := New(fs, fetch.NewClient(1), log, nil, NewProgress())

	summary, err := eng.Run(t.Context(), "run-1", []domain.WorkItem{item}, 1, false)
	require.NoError(t, err)

	// The unanswerable exists check falls through to a fetch rather
	// than a silent skip, and the miss lands in the log.
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, cs.hitCount("/unstattable.fits"))

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "could not stat")
}

func TestRunEmptyBatch(t *testing.T) {
	eng, _ := newTestEngine(t, nil)

	summary, err := eng.Run(t.Context(), "run-1", nil, 4, false)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
}
