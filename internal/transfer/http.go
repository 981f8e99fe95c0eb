package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"go.uber.org/zap"
)

// HTTPUploader PUTs file bytes to a presigned URL.
type HTTPUploader struct {
	client *http.Client
	log    *zap.Logger
}

func NewHTTPUploader(client *http.Client, log *zap.Logger) *HTTPUploader {
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPUploader{client: client, log: log.Named("transfer")}
}

// Transfer streams file to cred.URL. Without a known size only 0 and 1 are
// reported.
func (u *HTTPUploader) Transfer(ctx context.Context, cred pipeline.Credential, file pipeline.LocalFile, progress func(float64)) error {
	if progress == nil {
		progress = func(float64) {}
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer src.Close()

	size := file.Size()
	var body io.Reader = &countingReader{r: src, total: size, report: progress}
	if size <= 0 {
		// Presigned PUTs refuse chunked bodies, so an unknown length is
		// measured before sending.
		data, err := io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Name(), err)
		}
		size = int64(len(data))
		body = bytes.NewReader(data)
	}
	progress(0)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.URL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}
	if ct := file.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	for k, v := range cred.Headers {
		req.Header.Set(k, v)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", file.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		u.log.Debug("storage rejected upload",
			zap.String("file", file.Name()), zap.Int("status", resp.StatusCode))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	progress(1)
	return nil
}

// StatusError is a non-2xx answer from the storage endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload rejected with status %d", e.Code)
	}
	return fmt.Sprintf("upload rejected with status %d: %s", e.Code, e.Body)
}

type countingReader struct {
	r      io.Reader
	total  int64
	report func(float64)

	mu   sync.Mutex
	read int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.total > 0 {
		c.mu.Lock()
		c.read += int64(n)
		fraction := float64(c.read) / float64(c.total)
		c.mu.Unlock()
		if fraction > 1 {
			fraction = 1
		}
		c.report(fraction)
	}
	return n, err
}
