package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Credential is a single-use, time-limited authorization to write one object.
type Credential struct {
	URL       string
	Headers   map[string]string
	ExpiresAt time.Time
}

// ObjectStore is the storage platform: it issues upload credentials, resolves
// public URLs and removes objects.
type ObjectStore interface {
	IssueUploadCredential(ctx context.Context, objectPath, contentType string, size int64) (Credential, error)
	PublicURL(objectPath string) (string, error)
	RemoveObject(ctx context.Context, objectPath string) error
	// PathSegment is the part of every public URL that precedes the object path.
	PathSegment() string
}

// Transport moves the bytes of one file to a credential's URL. progress is
// called with the transferred fraction in [0,1] while the transfer runs.
type Transport interface {
	Transfer(ctx context.Context, cred Credential, file LocalFile, progress func(fraction float64)) error
}

// Recorder persists asset metadata rows.
type Recorder interface {
	// InsertAsset assigns ID and CreatedAt.
	InsertAsset(ctx context.Context, asset *models.Asset) error
	// DeleteAsset returns ErrNotFound when no row matched.
	DeleteAsset(ctx context.Context, kind models.AssetKind, assetID, ownerID string) error
}

// Publisher announces persisted changes. Failures never fail an upload.
type Publisher interface {
	Publish(subject string, payload interface{}) error
}

// Scanner inspects a file before anything is written to storage.
type Scanner interface {
	Scan(ctx context.Context, file LocalFile) error
}

const (
	SubjectAssetCreated = "assets.created"
	SubjectAssetDeleted = "assets.deleted"
)

type Dependencies struct {
	Store     ObjectStore
	Transport Transport
	Recorder  Recorder
	Paths     PathGenerator
	Publisher Publisher
	Scanner   Scanner
}

type Options struct {
	// Concurrency is the number of files transferred at once; 1 keeps the
	// caller's order.
	Concurrency int
	// TransferTimeout bounds each file's byte transfer; zero disables it.
	TransferTimeout time.Duration
}

type BatchRequest struct {
	Files     []LocalFile
	OwnerID   string
	ProjectID string
	Kind      models.AssetKind
	Progress  ProgressSink
}

// Orchestrator drives batches of files from selection to persisted assets.
// One batch may be in flight per instance, or per owner when the
// orchestrator comes from a Registry.
type Orchestrator struct {
	deps  Dependencies
	opts  Options
	log   *zap.Logger
	guard batchGuard
}

func New(deps Dependencies, opts Options, log *zap.Logger) *Orchestrator {
	return newOrchestrator(deps, opts, log, &instanceGuard{})
}

func newOrchestrator(deps Dependencies, opts Options, log *zap.Logger, guard batchGuard) *Orchestrator {
	if deps.Paths == nil {
		deps.Paths = NewRandomPathGenerator()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{deps: deps, opts: opts, log: log.Named("pipeline"), guard: guard}
}

// Busy reports whether a batch from ownerID would be rejected as in flight.
func (o *Orchestrator) Busy(ownerID string) bool {
	return o.guard.busy(ownerID)
}

// UploadBatch uploads and records every matching file of req. It stops at the
// first failure and returns the assets created before it together with an
// *UploadError; nothing already persisted is rolled back.
func (o *Orchestrator) UploadBatch(ctx context.Context, req BatchRequest) ([]models.Asset, error) {
	if !ValidOwnerID(req.OwnerID) || req.ProjectID == "" || !req.Kind.Valid() {
		return nil, ErrInvalidRequest
	}
	files := FilterByKind(req.Files, req.Kind)
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	if !o.guard.acquire(req.OwnerID) {
		return nil, ErrBatchInFlight
	}
	defer o.guard.release(req.OwnerID)

	log := o.log.With(
		zap.String("owner_id", req.OwnerID),
		zap.String("project_id", req.ProjectID),
		zap.String("kind", string(req.Kind)),
		zap.Int("files", len(files)),
	)
	if dropped := len(req.Files) - len(files); dropped > 0 {
		log.Debug("dropped files outside media class", zap.Int("dropped", dropped))
	}
	log.Info("upload batch started")

	progress := newBatchProgress(len(files), req.Progress)
	var (
		assets []models.Asset
		err    error
	)
	if o.opts.Concurrency == 1 || len(files) == 1 {
		assets, err = o.runSequential(ctx, req, files, progress)
	} else {
		assets, err = o.runParallel(ctx, req, files, progress)
	}

	if err != nil {
		log.Error("upload batch failed", zap.Int("created", len(assets)), zap.Error(err))
		return assets, err
	}
	log.Info("upload batch finished", zap.Int("created", len(assets)))
	return assets, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, req BatchRequest, files []LocalFile, progress *batchProgress) ([]models.Asset, error) {
	assets := make([]models.Asset, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return assets, &UploadError{Kind: ErrTransfer, Index: i, File: f.Name(), Err: err}
		}
		asset, err := o.uploadOne(ctx, req, i, f, progress)
		if err != nil {
			return assets, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (o *Orchestrator) runParallel(ctx context.Context, req BatchRequest, files []LocalFile, progress *batchProgress) ([]models.Asset, error) {
	results := make([]*models.Asset, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)

	for i, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &UploadError{Kind: ErrTransfer, Index: i, File: f.Name(), Err: err}
			}
			asset, err := o.uploadOne(gctx, req, i, f, progress)
			if err != nil {
				return err
			}
			results[i] = &asset
			return nil
		})
	}
	err := g.Wait()

	assets := make([]models.Asset, 0, len(files))
	firstMissing := -1
	for i, a := range results {
		if a != nil {
			assets = append(assets, *a)
		} else if firstMissing < 0 {
			firstMissing = i
		}
	}
	// Files skipped after cancellation leave no error of their own.
	if err == nil && firstMissing >= 0 {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		err = &UploadError{Kind: ErrTransfer, Index: firstMissing, File: files[firstMissing].Name(), Err: cause}
	}
	return assets, err
}

func (o *Orchestrator) uploadOne(ctx context.Context, req BatchRequest, idx int, f LocalFile, progress *batchProgress) (models.Asset, error) {
	objectPath := o.deps.Paths.ObjectPath(req.OwnerID, req.Kind, f.Name())
	fail := func(kind error, err error) (models.Asset, error) {
		progress.abandon(idx)
		return models.Asset{}, &UploadError{Kind: kind, Index: idx, File: f.Name(), Path: objectPath, Err: err}
	}

	if o.deps.Scanner != nil {
		if err := o.deps.Scanner.Scan(ctx, f); err != nil {
			return fail(ErrScan, err)
		}
	}

	cred, err := o.deps.Store.IssueUploadCredential(ctx, objectPath, f.ContentType(), f.Size())
	if err != nil {
		return fail(ErrCredential, err)
	}
	if cred.URL == "" {
		return fail(ErrCredential, errors.New("provider returned no upload url"))
	}

	tctx := ctx
	if o.opts.TransferTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, o.opts.TransferTimeout)
		defer cancel()
	}
	err = o.deps.Transport.Transfer(tctx, cred, f, func(fraction float64) {
		progress.update(idx, FilePercent(fraction))
	})
	if err != nil {
		return fail(ErrTransfer, err)
	}

	publicURL, err := o.deps.Store.PublicURL(objectPath)
	if err != nil {
		return fail(ErrResolution, err)
	}
	if publicURL == "" {
		return fail(ErrResolution, fmt.Errorf("empty public url for %s", objectPath))
	}

	asset := models.Asset{
		Kind:         req.Kind,
		URL:          publicURL,
		ObjectPath:   objectPath,
		OwnerID:      req.OwnerID,
		ProjectID:    req.ProjectID,
		OriginalName: f.Name(),
		Size:         f.Size(),
		ContentType:  f.ContentType(),
	}
	if err := o.deps.Recorder.InsertAsset(ctx, &asset); err != nil {
		// The object stays in storage without a row; it is not cleaned up here.
		o.log.Warn("orphaned object after persist failure",
			zap.String("object_path", objectPath), zap.Error(err))
		return fail(ErrPersist, err)
	}

	progress.complete(idx)
	o.publish(SubjectAssetCreated, asset)
	return asset, nil
}

func (o *Orchestrator) publish(subject string, asset models.Asset) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.Publish(subject, asset); err != nil {
		o.log.Warn("event publish failed", zap.String("subject", subject),
			zap.String("asset_id", asset.ID), zap.Error(err))
	}
}
