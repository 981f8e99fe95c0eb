package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"go.uber.org/zap"
)

// DeleteAsset removes the metadata row and then, best effort, the stored
// object.
//
// A missing row yields a *DeleteError matching both ErrPersist and
// ErrNotFound. Storage removal problems are logged and never returned.
func (o *Orchestrator) DeleteAsset(ctx context.Context, asset models.Asset) error {
	if asset.ID == "" || !asset.Kind.Valid() {
		return ErrInvalidRequest
	}
	log := o.log.With(zap.String("asset_id", asset.ID), zap.String("kind", string(asset.Kind)))

	if err := o.deps.Recorder.DeleteAsset(ctx, asset.Kind, asset.ID, asset.OwnerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info("asset row already removed")
		} else {
			log.Error("asset row delete failed", zap.Error(err))
		}
		return &DeleteError{Kind: ErrPersist, AssetID: asset.ID, Err: err}
	}

	objectPath, ok := ObjectPathFromURL(asset.URL, o.deps.Store.PathSegment())
	if !ok {
		log.Warn("asset url has no bucket segment, leaving storage untouched", zap.String("url", asset.URL))
	} else if err := o.deps.Store.RemoveObject(ctx, objectPath); err != nil {
		log.Warn("storage object removal failed", zap.String("object_path", objectPath), zap.Error(err))
	}

	o.publish(SubjectAssetDeleted, asset)
	log.Info("asset deleted")
	return nil
}

// ObjectPathFromURL returns what follows segment in rawURL, without query or
// fragment and with percent-escapes decoded. ok is false when the segment is
// absent or nothing follows it.
func ObjectPathFromURL(rawURL, segment string) (string, bool) {
	if segment == "" {
		return "", false
	}
	idx := strings.Index(rawURL, segment)
	if idx < 0 {
		return "", false
	}
	rest := rawURL[idx+len(segment):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	rest = strings.TrimLeft(rest, "/")
	if rest == "" {
		return "", false
	}
	return rest, true
}
