package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/util"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/query"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Queries interface {
	GetProject(ctx context.Context, userID, projectID string) (models.Project, error)
	GetAsset(ctx context.Context, kind models.AssetKind, assetID, userID string) (models.Asset, error)
	ListAssets(ctx context.Context, kind models.AssetKind, userID, projectID string, limit, offset int) ([]models.Asset, error)
}

// Orchestrators hands out the caller's upload orchestrator.
type Orchestrators interface {
	For(ownerID string) *pipeline.Orchestrator
}

type Handler struct {
	orchestrators Orchestrators
	queries       Queries
	maxFileSize   int64
	log           *zap.Logger
}

func NewHandler(orchestrators Orchestrators, queries Queries, maxFileSize int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{orchestrators: orchestrators, queries: queries, maxFileSize: maxFileSize, log: log.Named("assets")}
}

// Upload runs one batch for POST /projects/:id/assets/:kind. Clients that
// accept text/event-stream get progress events followed by a result event.
func (h *Handler) Upload(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	kind, ok := models.ParseAssetKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown asset kind: " + c.Param("kind")})
		return
	}
	projectID := c.Param("id")
	if _, err := h.queries.GetProject(c.Request.Context(), userID, projectID); err != nil {
		util.Fail(c, err)
		return
	}

	headers, err := formFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := make([]pipeline.LocalFile, 0, len(headers))
	for _, fh := range headers {
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large: " + fh.Filename})
			return
		}
		files = append(files, pipeline.MultipartFile{Header: fh})
	}

	req := pipeline.BatchRequest{Files: files, OwnerID: userID, ProjectID: projectID, Kind: kind}
	orch := h.orchestrators.For(userID)

	if !wantsEventStream(c) {
		assets, err := orch.UploadBatch(c.Request.Context(), req)
		status, body := batchResponse(assets, err)
		c.JSON(status, body)
		return
	}

	h.stream(c, orch, req)
}

type batchResult struct {
	assets []models.Asset
	err    error
}

// stream starts the batch and commits to an event stream only once the
// batch has emitted its first progress value. A batch refused before it
// starts is answered as plain JSON.
func (h *Handler) stream(c *gin.Context, orch *pipeline.Orchestrator, req pipeline.BatchRequest) {
	// Values only increase, so 0..100 fit without blocking the pipeline.
	progress := make(chan int, 101)
	done := make(chan batchResult, 1)
	req.Progress = func(p int) { progress <- p }

	go func() {
		assets, err := orch.UploadBatch(c.Request.Context(), req)
		close(progress)
		done <- batchResult{assets: assets, err: err}
	}()

	first, started := <-progress
	if !started {
		res := <-done
		status, body := batchResponse(res.assets, res.err)
		c.JSON(status, body)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("progress", gin.H{"percent": first})
	c.Stream(func(_ io.Writer) bool {
		if p, ok := <-progress; ok {
			c.SSEvent("progress", gin.H{"percent": p})
			return true
		}
		res := <-done
		status, body := batchResponse(res.assets, res.err)
		body["status"] = status
		c.SSEvent("result", body)
		return false
	})
}

// batchResponse renders a finished batch, including partial results.
func batchResponse(assets []models.Asset, err error) (int, gin.H) {
	if assets == nil {
		assets = []models.Asset{}
	}
	body := gin.H{"created": len(assets), "assets": assets}
	if err == nil {
		return http.StatusCreated, body
	}
	body["error"] = err.Error()
	var uerr *pipeline.UploadError
	if errors.As(err, &uerr) {
		body["failed_file"] = uerr.File
		body["failed_index"] = uerr.Index
		body["step"] = uerr.Kind.Error()
	}
	return util.StatusFor(err), body
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// formFiles accepts either a "files" list or a single "file" field.
func formFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if f, ferr := c.FormFile("file"); ferr == nil && f != nil {
			return []*multipart.FileHeader{f}, nil
		}
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	if fs := form.File["files"]; len(fs) > 0 {
		return fs, nil
	}
	if fs := form.File["file"]; len(fs) > 0 {
		return fs, nil
	}
	return nil, errors.New("no files provided")
}

// List serves GET /projects/:id/assets/:kind.
func (h *Handler) List(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	kind, ok := models.ParseAssetKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown asset kind: " + c.Param("kind")})
		return
	}
	limit, offset := util.Page(c, query.DefaultPageSize, query.MaxPageSize)
	assets, err := h.queries.ListAssets(c.Request.Context(), kind, userID, c.Param("id"), limit, offset)
	if err != nil {
		h.log.Error("list assets failed", zap.Error(err))
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets, "count": len(assets)})
}

// Delete serves DELETE /assets/:kind/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	kind, ok := models.ParseAssetKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown asset kind: " + c.Param("kind")})
		return
	}
	asset, err := h.queries.GetAsset(c.Request.Context(), kind, c.Param("id"), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	if err := h.orchestrators.For(userID).DeleteAsset(c.Request.Context(), asset); err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "asset deleted", "id": asset.ID})
}
