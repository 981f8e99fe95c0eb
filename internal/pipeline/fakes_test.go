package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
)

const testSegment = "/storage/v1/object/public/user-templates/"

type memFile struct {
	name string
	ct   string
	data []byte
}

func (f memFile) Name() string        { return f.name }
func (f memFile) Size() int64         { return int64(len(f.data)) }
func (f memFile) ContentType() string { return f.ct }
func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func videos(n int) []LocalFile {
	files := make([]LocalFile, n)
	for i := range files {
		files[i] = memFile{name: fmt.Sprintf("clip%d.mp4", i+1), ct: "video/mp4", data: []byte("frames")}
	}
	return files
}

// fakeStore fails the n-th call (1-indexed) of a step when told to.
type fakeStore struct {
	mu                sync.Mutex
	credentialCalls   int
	urlCalls          int
	failCredentialAt  int
	emptyCredentialAt int
	failURLAt         int
	removed           []string
	removeErr         error
}

func (s *fakeStore) IssueUploadCredential(_ context.Context, objectPath, _ string, _ int64) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentialCalls++
	if s.credentialCalls == s.failCredentialAt {
		return Credential{}, errors.New("bucket unavailable")
	}
	if s.credentialCalls == s.emptyCredentialAt {
		return Credential{}, nil
	}
	return Credential{URL: "https://storage.test/upload/" + objectPath + "?token=abc", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *fakeStore) PublicURL(objectPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urlCalls++
	if s.urlCalls == s.failURLAt {
		return "", errors.New("no public base")
	}
	return "https://storage.test" + testSegment + objectPath, nil
}

func (s *fakeStore) RemoveObject(_ context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, objectPath)
	return s.removeErr
}

func (s *fakeStore) PathSegment() string { return testSegment }

func (s *fakeStore) credentials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentialCalls
}

type fakeTransport struct {
	mu     sync.Mutex
	calls  []string
	failAt int
	// steps are the fractions reported for every file.
	steps []float64
	// hook runs before the transfer reports progress.
	hook func(ctx context.Context, call int, file LocalFile) error
}

func (t *fakeTransport) Transfer(ctx context.Context, _ Credential, file LocalFile, progress func(float64)) error {
	t.mu.Lock()
	t.calls = append(t.calls, file.Name())
	call := len(t.calls)
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call, file); err != nil {
			return err
		}
	}
	if call == t.failAt {
		return errors.New("upload failed 403")
	}
	steps := t.steps
	if steps == nil {
		steps = []float64{0.5, 1}
	}
	for _, s := range steps {
		progress(s)
	}
	return nil
}

func (t *fakeTransport) transferred() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

type fakeRecorder struct {
	mu        sync.Mutex
	calls     int
	failAt    int
	seq       int
	rows      map[string]models.Asset
	deleteErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{rows: make(map[string]models.Asset)}
}

func (r *fakeRecorder) InsertAsset(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls == r.failAt {
		return errors.New("insert rejected by policy")
	}
	r.seq++
	a.ID = fmt.Sprintf("asset-%d", r.seq)
	a.CreatedAt = time.Date(2025, 1, 1, 0, 0, r.seq, 0, time.UTC)
	r.rows[a.ID] = *a
	return nil
}

func (r *fakeRecorder) DeleteAsset(_ context.Context, _ models.AssetKind, id, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeRecorder) names() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.rows))
	for _, a := range r.rows {
		out[a.OriginalName] = true
	}
	return out
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *fakePublisher) Publish(subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

type fakeScanner struct {
	infected map[string]bool
}

func (s fakeScanner) Scan(_ context.Context, f LocalFile) error {
	if s.infected[f.Name()] {
		return errors.New("Eicar-Test-Signature FOUND")
	}
	return nil
}

// progressLog collects sink values.
type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) sink(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func (p *progressLog) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

type countingPaths struct {
	mu sync.Mutex
	n  int
}

func (c *countingPaths) ObjectPath(owner string, kind models.AssetKind, filename string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	g := RandomPathGenerator{
		Token: func() string { return fmt.Sprintf("tok%d", c.n) },
		Now:   func() time.Time { return time.UnixMilli(1700000000000) },
	}
	return g.ObjectPath(owner, kind, filename)
}
