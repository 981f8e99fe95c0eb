package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/util"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketSegment = "/user-templates/"

type memStore struct{}

func (memStore) IssueUploadCredential(_ context.Context, path, _ string, _ int64) (pipeline.Credential, error) {
	return pipeline.Credential{URL: "https://storage.test/upload/" + path}, nil
}
func (memStore) PublicURL(path string) (string, error) {
	return "https://storage.test" + bucketSegment + path, nil
}
func (memStore) RemoveObject(context.Context, string) error { return nil }
func (memStore) PathSegment() string                        { return bucketSegment }

type gateTransport struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateTransport) Transfer(_ context.Context, _ pipeline.Credential, _ pipeline.LocalFile, progress func(float64)) error {
	if g != nil && g.started != nil {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	progress(1)
	return nil
}

type memDB struct {
	mu       sync.Mutex
	assets   map[string]models.Asset
	seq      int
	failFrom int
}

func newMemDB() *memDB { return &memDB{assets: map[string]models.Asset{}} }

func (m *memDB) InsertAsset(_ context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFrom > 0 && m.seq+1 >= m.failFrom {
		return errors.New("insert denied")
	}
	m.seq++
	a.ID = fmt.Sprintf("a%d", m.seq)
	m.assets[a.ID] = *a
	return nil
}

func (m *memDB) DeleteAsset(_ context.Context, _ models.AssetKind, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[id]; !ok {
		return pipeline.ErrNotFound
	}
	delete(m.assets, id)
	return nil
}

func (m *memDB) GetProject(_ context.Context, userID, projectID string) (models.Project, error) {
	if projectID != "p1" {
		return models.Project{}, pipeline.ErrNotFound
	}
	return models.Project{ID: projectID, UserID: userID, Name: "Launch"}, nil
}

func (m *memDB) GetAsset(_ context.Context, kind models.AssetKind, id, userID string) (models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok || a.Kind != kind || a.OwnerID != userID {
		return models.Asset{}, pipeline.ErrNotFound
	}
	return a, nil
}

func (m *memDB) ListAssets(_ context.Context, kind models.AssetKind, userID, projectID string, _, _ int) ([]models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Asset{}
	for i := 1; i <= m.seq; i++ {
		a, ok := m.assets[fmt.Sprintf("a%d", i)]
		if ok && a.Kind == kind && a.OwnerID == userID && a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newRouter(db *memDB, transport pipeline.Transport, maxSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	registry := pipeline.NewRegistry(pipeline.Dependencies{
		Store:     memStore{},
		Transport: transport,
		Recorder:  db,
	}, pipeline.Options{}, nil)
	h := NewHandler(registry, db, maxSize, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(util.UserIDKey, id)
		}
	})
	r.POST("/api/projects/:id/assets/:kind", h.Upload)
	r.GET("/api/projects/:id/assets/:kind", h.List)
	r.DELETE("/api/assets/:kind/:id", h.Delete)
	return r
}

func uploadRequest(t *testing.T, path string, names ...string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("media-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", "u1")
	return req
}

type uploadBody struct {
	Created     int            `json:"created"`
	Assets      []models.Asset `json:"assets"`
	Error       string         `json:"error"`
	FailedFile  string         `json:"failed_file"`
	FailedIndex int            `json:"failed_index"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) uploadBody {
	t.Helper()
	var b uploadBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func TestUploadCreatesAssets(t *testing.T) {
	db := newMemDB()
	r := newRouter(db, &gateTransport{}, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4", "b.mov"))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode(t, w)
	assert.Equal(t, 2, b.Created)
	require.Len(t, b.Assets, 2)
	assert.Equal(t, "a.mp4", b.Assets[0].OriginalName)
	assert.Equal(t, "p1", b.Assets[0].ProjectID)
	assert.True(t, strings.HasPrefix(b.Assets[0].ObjectPath, "u1/hook_"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/projects/p1/assets/hook", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
		want int
	}{
		{"unknown kind", func(t *testing.T) *http.Request {
			return uploadRequest(t, "/api/projects/p1/assets/poster", "a.mp4")
		}, http.StatusBadRequest},
		{"unknown project", func(t *testing.T) *http.Request {
			return uploadRequest(t, "/api/projects/p9/assets/hook", "a.mp4")
		}, http.StatusNotFound},
		{"no files", func(t *testing.T) *http.Request {
			return uploadRequest(t, "/api/projects/p1/assets/hook")
		}, http.StatusBadRequest},
		{"nothing of the right media type", func(t *testing.T) *http.Request {
			return uploadRequest(t, "/api/projects/p1/assets/hook", "notes.txt", "theme.mp3")
		}, http.StatusBadRequest},
		{"unauthenticated", func(t *testing.T) *http.Request {
			req := uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4")
			req.Header.Del("X-User-ID")
			return req
		}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newRouter(newMemDB(), &gateTransport{}, 0).ServeHTTP(w, tt.req(t))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUploadFileTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(newMemDB(), &gateTransport{}, 4).ServeHTTP(w, uploadRequest(t, "/api/projects/p1/assets/demo", "a.mp4"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file too large")
}

func TestUploadPartialFailure(t *testing.T) {
	db := newMemDB()
	db.failFrom = 2
	w := httptest.NewRecorder()
	newRouter(db, &gateTransport{}, 0).ServeHTTP(w, uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4", "b.mp4", "c.mp4"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	b := decode(t, w)
	assert.Equal(t, 1, b.Created)
	assert.Equal(t, "b.mp4", b.FailedFile)
	assert.Equal(t, 1, b.FailedIndex)
	assert.Contains(t, b.Error, "metadata persist failed")
}

func TestUploadWhileBatchInFlight(t *testing.T) {
	gate := &gateTransport{started: make(chan struct{}), release: make(chan struct{})}
	r := newRouter(newMemDB(), gate, 0)

	first := httptest.NewRecorder()
	firstReq := uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4")
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(first, firstReq)
	}()
	<-gate.started

	second := httptest.NewRecorder()
	r.ServeHTTP(second, uploadRequest(t, "/api/projects/p1/assets/hook", "b.mp4"))
	assert.Equal(t, http.StatusConflict, second.Code)

	close(gate.release)
	<-done
	assert.Equal(t, http.StatusCreated, first.Code)
}

type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (s *streamRecorder) CloseNotify() <-chan bool { return s.closed }

func TestUploadEventStream(t *testing.T) {
	r := newRouter(newMemDB(), &gateTransport{}, 0)
	req := uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4", "b.mp4")
	req.Header.Set("Accept", "text/event-stream")

	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"), w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event:progress\ndata:{\"percent\":0}")
	assert.Contains(t, body, "event:progress\ndata:{\"percent\":50}")
	assert.Contains(t, body, "event:progress\ndata:{\"percent\":100}")
	assert.Contains(t, body, "event:result\n")
	assert.Contains(t, body, `"created":2`)
	assert.Less(t, strings.Index(body, `"percent":100`), strings.Index(body, "event:result"))
}

func TestUploadEventStreamWhileBatchInFlight(t *testing.T) {
	gate := &gateTransport{started: make(chan struct{}), release: make(chan struct{})}
	r := newRouter(newMemDB(), gate, 0)

	first := httptest.NewRecorder()
	firstReq := uploadRequest(t, "/api/projects/p1/assets/hook", "a.mp4")
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(first, firstReq)
	}()
	<-gate.started

	req := uploadRequest(t, "/api/projects/p1/assets/hook", "b.mp4")
	req.Header.Set("Accept", "text/event-stream")
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.NotContains(t, w.Body.String(), "event:")

	close(gate.release)
	<-done
	assert.Equal(t, http.StatusCreated, first.Code)
}

func TestDeleteAsset(t *testing.T) {
	db := newMemDB()
	r := newRouter(db, &gateTransport{}, 0)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/projects/p1/assets/audio", "theme.mp3"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w).Assets[0].ID

	del := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/assets/audio/"+id, nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, del())
	assert.Equal(t, http.StatusNotFound, del())
}
