package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const segment = "/public/assets/"

type bucket struct {
	mu      sync.Mutex
	server  *httptest.Server
	objects map[string][]byte
}

func newBucket(t *testing.T) *bucket {
	b := &bucket{objects: map[string][]byte{}}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.objects[strings.TrimPrefix(r.URL.Path, "/")] = data
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *bucket) IssueUploadCredential(_ context.Context, objectPath, _ string, _ int64) (pipeline.Credential, error) {
	return pipeline.Credential{URL: b.server.URL + "/" + objectPath, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (b *bucket) PublicURL(objectPath string) (string, error) {
	return "https://cdn.test" + segment + objectPath, nil
}

func (b *bucket) RemoveObject(_ context.Context, objectPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objectPath)
	return nil
}

func (b *bucket) PathSegment() string { return segment }

type table struct {
	mu   sync.Mutex
	seq  int
	rows []models.Asset
}

func (m *table) InsertAsset(_ context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = fmt.Sprintf("a%d", m.seq)
	m.rows = append(m.rows, *a)
	return nil
}

func (m *table) DeleteAsset(_ context.Context, _ models.AssetKind, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.rows {
		if a.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return pipeline.ErrNotFound
}

func (m *table) GetAsset(_ context.Context, kind models.AssetKind, id, userID string) (models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id && a.Kind == kind && a.OwnerID == userID {
			return a, nil
		}
	}
	return models.Asset{}, pipeline.ErrNotFound
}

func (m *table) ListAssets(_ context.Context, kind models.AssetKind, userID, projectID string, _, _ int) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Asset
	for _, a := range m.rows {
		if a.Kind == kind && a.OwnerID == userID && a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

type env struct {
	bucket *bucket
	table  *table
	opened int
}

func newEnv(t *testing.T) *env {
	return &env{bucket: newBucket(t), table: &table{}}
}

func (e *env) open(context.Context, bool) (*backend, error) {
	e.opened++
	registry := pipeline.NewRegistry(pipeline.Dependencies{
		Store:     e.bucket,
		Transport: transfer.NewHTTPUploader(e.bucket.server.Client(), zap.NewNop()),
		Recorder:  e.table,
	}, pipeline.Options{}, zap.NewNop())
	return &backend{orchestrators: registry, queries: e.table}, nil
}

func (e *env) run(args ...string) (string, string, error) {
	return e.runContext(context.Background(), args...)
}

func (e *env) runContext(ctx context.Context, args ...string) (string, string, error) {
	root := newRootCommand(newCommandContext(e.open))
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeFiles(t *testing.T, names ...string) []string {
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(paths[i], []byte{0x00, 0x01, 0x02, 0x03}, 0o600))
	}
	return paths
}

func TestUploadCommand(t *testing.T) {
	e := newEnv(t)
	paths := writeFiles(t, "intro.mp4", "outro.mov", "notes.txt")

	args := append([]string{"upload", "-u", "user-1", "-p", "proj-1", "-k", "demo"}, paths...)
	out, errOut, err := e.run(args...)
	require.NoError(t, err)

	assert.Contains(t, out, "Uploaded 2 demo asset(s)")
	assert.Contains(t, out, "intro.mp4")
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, errOut, "100%")
	assert.Len(t, e.bucket.objects, 2)
	for path := range e.bucket.objects {
		assert.True(t, strings.HasPrefix(path, "user-1/demo_"), path)
	}
}

func TestUploadCommandValidatesBeforeConnecting(t *testing.T) {
	e := newEnv(t)
	paths := writeFiles(t, "intro.mp4")

	cases := map[string][]string{
		"no user":    {"upload", "-p", "proj-1", paths[0]},
		"bad kind":   {"upload", "-u", "u", "-p", "proj-1", "-k", "banner", paths[0]},
		"no project": {"upload", "-u", "u", paths[0]},
		"missing":    {"upload", "-u", "u", "-p", "proj-1", filepath.Join(t.TempDir(), "gone.mp4")},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ASSET_USER_ID", "")
			_, _, err := e.run(args...)
			assert.Error(t, err)
		})
	}
	assert.Zero(t, e.opened)
}

func TestUploadCommandStopsWhenInterrupted(t *testing.T) {
	e := newEnv(t)
	paths := writeFiles(t, "intro.mp4", "outro.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.runContext(ctx, "upload", "--no-progress", "-u", "u", "-p", "proj-1", paths[0], paths[1])
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.bucket.objects)
	assert.Empty(t, e.table.rows)
}

func TestUploadCommandEmptyBatch(t *testing.T) {
	e := newEnv(t)
	paths := writeFiles(t, "intro.mp4")

	_, _, err := e.run("upload", "--no-progress", "-u", "u", "-p", "proj-1", "-k", "audio", paths[0])
	assert.ErrorIs(t, err, pipeline.ErrEmptyBatch)
}

func TestListAndDeleteCommands(t *testing.T) {
	e := newEnv(t)
	paths := writeFiles(t, "theme.mp3", "clip.mp4")

	_, _, err := e.run("upload", "--no-progress", "-u", "u", "-p", "proj-1", "-k", "audio", paths[0])
	require.NoError(t, err)
	_, _, err = e.run("upload", "--no-progress", "-u", "u", "-p", "proj-1", "-k", "hook", paths[1])
	require.NoError(t, err)

	out, _, err := e.run("list", "-u", "u", "-p", "proj-1")
	require.NoError(t, err)
	assert.Contains(t, out, "hook\ta2\tclip.mp4")
	assert.Contains(t, out, "audio\ta1\ttheme.mp3")

	out, _, err = e.run("delete", "-u", "u", "audio", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted audio asset a1")
	assert.Len(t, e.bucket.objects, 1)

	out, _, err = e.run("list", "-u", "u", "-p", "proj-1", "-k", "audio")
	require.NoError(t, err)
	assert.Contains(t, out, "No assets")

	_, _, err = e.run("delete", "-u", "u", "audio", "a1")
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

func TestKindsFor(t *testing.T) {
	kinds, err := kindsFor("ALL")
	require.NoError(t, err)
	assert.Equal(t, models.AssetKinds, kinds)

	kinds, err = kindsFor("hook")
	require.NoError(t, err)
	assert.Equal(t, []models.AssetKind{models.AssetKindHook}, kinds)

	_, err = kindsFor("banner")
	assert.Error(t, err)
}
