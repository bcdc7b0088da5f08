package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu       sync.Mutex
	folders  []string
	uploads  []string
	queries  []string
	failWith int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"The user's Drive storage quota has been exceeded.","errors":[{"reason":"storageQuotaExceeded","message":"quota"}]}}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.RawQuery)
		var files []map[string]string
		for _, id := range f.folders {
			files = append(files, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": files})

	case r.Method == http.MethodPost && r.URL.Query().Get("uploadType") != "":
		body, _ := io.ReadAll(r.Body)
		f.uploads = append(f.uploads, string(body))
		_, _ = io.WriteString(w, `{"id":"file-1"}`)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		f.folders = append(f.folders, "folder-1")
		_, _ = io.WriteString(w, `{"id":"folder-1"}`)

	default:
		http.NotFound(w, r)
	}
}

func newTestUploader(t *testing.T, fake *fakeDrive, cfg Config) *Uploader {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := NewUploader(context.Background(), srv.Client(), cfg,
		option.WithEndpoint(srv.URL+"/drive/v3/"))
	require.NoError(t, err)
	return u
}

func pdfFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faktura_785_20250929.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3 test"), 0o644))
	return path
}

func TestUploadCreatesFolderOnce(t *testing.T) {
	fake := &fakeDrive{}
	u := newTestUploader(t, fake, Config{})
	ctx := context.Background()

	id, err := u.Upload(ctx, pdfFile(t))
	require.NoError(t, err)
	assert.Equal(t, "file-1", id)

	_, err = u.Upload(ctx, pdfFile(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"folder-1"}, fake.folders)
	assert.Len(t, fake.queries, 1, "folder id is cached")
	require.Len(t, fake.uploads, 2)
	assert.Contains(t, fake.uploads[0], "faktura_785_20250929.pdf")
	assert.Contains(t, fake.uploads[0], "%PDF-1.3 test")
}

func TestUploadUsesExistingSharedDriveFolder(t *testing.T) {
	fake := &fakeDrive{folders: []string{"existing"}}
	u := newTestUploader(t, fake, Config{Folder: "stfaktura", SharedDriveID: "drive-9"})

	_, err := u.Upload(context.Background(), pdfFile(t))
	require.NoError(t, err)

	require.Len(t, fake.queries, 1)
	assert.Contains(t, fake.queries[0], "driveId=drive-9")
	assert.Contains(t, fake.queries[0], "corpora=drive")
	assert.Equal(t, []string{"existing"}, fake.folders, "no folder created")
}

func TestUploadForbidden(t *testing.T) {
	u := newTestUploader(t, &fakeDrive{failWith: http.StatusForbidden}, Config{})

	_, err := u.Upload(context.Background(), pdfFile(t))
	assert.ErrorIs(t, err, ErrUploadForbidden)
	assert.Contains(t, Hint(err), "GOOGLE_DRIVE_SHARED_DRIVE_ID")
}

func TestUploadMissingFile(t *testing.T) {
	u := newTestUploader(t, &fakeDrive{folders: []string{"f"}}, Config{})

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, Hint(err))
}
