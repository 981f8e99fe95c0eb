package nats

import (
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/project"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/user"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"go.uber.org/zap"
)

func Routes(cleanup *services.Cleanup, log *zap.Logger) map[string]EventHandler {
	return map[string]EventHandler{
		// User events
		services.SubjectUserDeleted: user.NewDeletedHandler(cleanup, log),

		// Project events
		services.SubjectProjectDeleted: project.NewDeletedHandler(cleanup, log),
	}
}
