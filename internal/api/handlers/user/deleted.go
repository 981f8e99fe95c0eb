package user

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"go.uber.org/zap"
)

type Purger interface {
	PurgeUser(ctx context.Context, userID string) (services.CleanupResult, error)
}

// DeletedHandler reacts to users.deleted by purging everything the user
// stored here.
type DeletedHandler struct {
	purger Purger
	log    *zap.Logger
}

func NewDeletedHandler(purger Purger, log *zap.Logger) *DeletedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeletedHandler{purger: purger, log: log.Named("users.deleted")}
}

func (h *DeletedHandler) Handle(ctx context.Context, data []byte) error {
	var event models.UserDeletedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", services.ErrMalformedEvent, err)
	}
	if event.UserID == "" {
		return fmt.Errorf("%w: missing user_id", services.ErrMalformedEvent)
	}

	h.log.Info("processing", zap.String("user_id", event.UserID))
	res, err := h.purger.PurgeUser(ctx, event.UserID)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		h.log.Warn("some objects were not removed", zap.String("user_id", event.UserID), zap.Int("failed", res.Failed))
	}
	return nil
}
