package project

import (
	"context"
	"net/http"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/util"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Commands interface {
	CreateProject(ctx context.Context, p *models.Project) error
	UpdateProject(ctx context.Context, userID, projectID string, upd models.ProjectUpdate) (models.Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) error
}

type Queries interface {
	GetProject(ctx context.Context, userID, projectID string) (models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	UserAssetStats(ctx context.Context, userID string) (models.UserAssetStats, error)
}

type Purger interface {
	PurgeProject(ctx context.Context, userID, projectID string) (services.CleanupResult, error)
}

type Handler struct {
	commands  Commands
	queries   Queries
	purger    Purger
	publisher pipeline.Publisher
	log       *zap.Logger
}

func NewHandler(commands Commands, queries Queries, purger Purger, publisher pipeline.Publisher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{commands: commands, queries: queries, purger: purger, publisher: publisher, log: log.Named("projects")}
}

type createRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	TargetAudience    string `json:"target_audience"`
	Tone              string `json:"tone"`
	PriceCategory     string `json:"price_category"`
	Keywords          string `json:"keywords"`
	UniqueProposition string `json:"unique_proposition"`
	CallToAction      string `json:"call_to_action"`
	Website           string `json:"website"`
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := models.Project{
		UserID:            userID,
		Name:              req.Name,
		Description:       req.Description,
		TargetAudience:    req.TargetAudience,
		Tone:              req.Tone,
		PriceCategory:     req.PriceCategory,
		Keywords:          req.Keywords,
		UniqueProposition: req.UniqueProposition,
		CallToAction:      req.CallToAction,
		Website:           req.Website,
		Status:            models.ProjectStatusDraft,
	}
	if err := h.commands.CreateProject(c.Request.Context(), &p); err != nil {
		h.log.Error("create project failed", zap.String("user_id", userID), zap.Error(err))
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	projects, err := h.queries.ListProjects(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) Get(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	p, err := h.queries.GetProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	var upd models.ProjectUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.commands.UpdateProject(c.Request.Context(), userID, c.Param("id"), upd)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete removes the project's assets, then the project itself, and
// announces it on projects.deleted.
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	projectID := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.queries.GetProject(ctx, userID, projectID); err != nil {
		util.Fail(c, err)
		return
	}
	res, err := h.purger.PurgeProject(ctx, userID, projectID)
	if err != nil {
		h.log.Error("purge project assets failed", zap.String("project_id", projectID), zap.Error(err))
		util.Fail(c, err)
		return
	}
	if err := h.commands.DeleteProject(ctx, userID, projectID); err != nil {
		util.Fail(c, err)
		return
	}

	if h.publisher != nil {
		event := models.ProjectDeletedEvent{UserID: userID, ProjectID: projectID}
		if err := h.publisher.Publish(services.SubjectProjectDeleted, event); err != nil {
			h.log.Warn("failed to publish projects.deleted", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "project deleted", "id": projectID, "cleanup": res})
}

// Stats reports how many assets the caller stores and their total size.
func (h *Handler) Stats(c *gin.Context) {
	userID, ok := util.RequireUser(c)
	if !ok {
		return
	}
	st, err := h.queries.UserAssetStats(c.Request.Context(), userID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
