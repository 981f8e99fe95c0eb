package pipeline

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByKindKeepsOrder(t *testing.T) {
	files := []LocalFile{
		memFile{name: "1.mp4", ct: "video/mp4"},
		nil,
		memFile{name: "2.wav", ct: "audio/wav"},
		memFile{name: "3.mov", ct: "video/quicktime"},
		memFile{name: "4.txt", ct: "text/plain"},
	}

	var names []string
	for _, f := range FilterByKind(files, models.AssetKindHook) {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"1.mp4", "3.mov"}, names)

	audio := FilterByKind(files, models.AssetKindAudio)
	require.Len(t, audio, 1)
	assert.Equal(t, "2.wav", audio[0].Name())

	assert.Empty(t, FilterByKind(nil, models.AssetKindDemo))
}

func TestContentTypeForName(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeForName("clip.MP4"))
	assert.Equal(t, "video/quicktime", ContentTypeForName("take.mov"))
	assert.Equal(t, "audio/mpeg", ContentTypeForName("theme.mp3"))
	assert.Equal(t, "application/octet-stream", ContentTypeForName("blob"))
}

func TestOpenDiskFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.mov")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03}, 0o600))

	f, err := OpenDiskFile(path)
	require.NoError(t, err)
	assert.Equal(t, "take.mov", f.Name())
	assert.Equal(t, int64(4), f.Size())
	assert.Equal(t, "video/quicktime", f.ContentType())

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Len(t, data, 4)

	_, err = OpenDiskFile(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)

	_, err = OpenDiskFile(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestMultipartFileContentType(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("files", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("webm-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	fh := req.MultipartForm.File["files"][0]
	f := MultipartFile{Header: fh}
	assert.Equal(t, "clip.webm", f.Name())
	assert.Equal(t, int64(10), f.Size())
	// CreateFormFile always sends application/octet-stream
	assert.Equal(t, "video/webm", f.ContentType())
}
