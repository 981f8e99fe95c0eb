package project

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"go.uber.org/zap"
)

// DeletedHandler purges the assets of a project announced on
// projects.deleted. Running it after the HTTP delete already purged is a
// no-op.
type DeletedHandler struct {
	purger Purger
	log    *zap.Logger
}

func NewDeletedHandler(purger Purger, log *zap.Logger) *DeletedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeletedHandler{purger: purger, log: log.Named("projects.deleted")}
}

func (h *DeletedHandler) Handle(ctx context.Context, data []byte) error {
	var event models.ProjectDeletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", services.ErrMalformedEvent, err)
	}
	if event.UserID == "" || event.ProjectID == "" {
		return fmt.Errorf("%w: missing user_id or project_id", services.ErrMalformedEvent)
	}
	res, err := h.purger.PurgeProject(ctx, event.UserID, event.ProjectID)
	if err != nil {
		return err
	}
	h.log.Debug("purged", zap.String("project_id", event.ProjectID), zap.Int("rows", res.Rows))
	return nil
}
