package pipeline

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/gabriel-vasile/mimetype"
)

// LocalFile is anything the caller picked for upload: a name, a size and a
// MIME type, plus a way to read the bytes.
type LocalFile interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// FilterByKind keeps the files whose MIME type belongs to the kind's media
// class. Order is preserved; mismatches are dropped without error.
func FilterByKind(files []LocalFile, kind models.AssetKind) []LocalFile {
	class := kind.MediaClass()
	out := make([]LocalFile, 0, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(f.ContentType()), class) {
			out = append(out, f)
		}
	}
	return out
}

// DiskFile is a file on the local filesystem.
type DiskFile struct {
	path        string
	size        int64
	contentType string
}

// OpenDiskFile stats the file and sniffs its content type, falling back to
// the extension when sniffing is inconclusive.
func OpenDiskFile(path string) (*DiskFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	ct := ""
	if m, err := mimetype.DetectFile(path); err == nil && m.String() != "application/octet-stream" {
		ct = m.String()
	}
	if ct == "" {
		ct = ContentTypeForName(path)
	}
	return &DiskFile{path: path, size: info.Size(), contentType: ct}, nil
}

func (f *DiskFile) Name() string                 { return filepath.Base(f.path) }
func (f *DiskFile) Size() int64                  { return f.size }
func (f *DiskFile) ContentType() string          { return f.contentType }
func (f *DiskFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// MultipartFile adapts an uploaded form file.
type MultipartFile struct {
	Header *multipart.FileHeader
}

func (f MultipartFile) Name() string { return f.Header.Filename }
func (f MultipartFile) Size() int64  { return f.Header.Size }

func (f MultipartFile) ContentType() string {
	if ct := f.Header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return ContentTypeForName(f.Header.Filename)
}

func (f MultipartFile) Open() (io.ReadCloser, error) { return f.Header.Open() }

// ContentTypeForName maps a filename extension to a MIME type.
func ContentTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".flac":
		return "audio/flac"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
