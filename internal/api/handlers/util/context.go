package util

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// UserIDKey is where the auth middleware stores the caller's subject.
const UserIDKey = "user_id"

func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(UserIDKey)
	return id, id != ""
}

// RequireUser writes a 401 and returns false when no user is attached.
func RequireUser(c *gin.Context) (string, bool) {
	id, ok := UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return id, ok
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest), errors.Is(err, pipeline.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrBatchInFlight), errors.Is(err, pipeline.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrScan):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrCredential), errors.Is(err, pipeline.ErrTransfer),
		errors.Is(err, pipeline.ErrResolution), errors.Is(err, pipeline.ErrPersist):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func Fail(c *gin.Context, err error) {
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

// Page reads page and pageSize query parameters as limit and offset.
func Page(c *gin.Context, defaultSize, maxSize int) (limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultSize)))
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	return size, (page - 1) * size
}
