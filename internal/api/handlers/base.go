// Package handlers contains the HTTP handlers for the reconciliation API.
package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
)

// Base provides shared dependencies for all handlers.
type Base struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewBase creates a new base handler.
func NewBase(repo storage.Repository, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{repo: repo, logger: logger}
}

// pageQuery extracts pagination and filter parameters from the request.
func pageQuery(c *gin.Context) storage.PageQuery {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return storage.PageQuery{
		Offset: offset,
		Limit:  limit,
		Search: c.Query("search"),
	}
}

// Feed timestamps arrive either as RFC 3339 or the bare
// "YYYY-MM-DD hh:mm:ss" form the upload tooling produces.
var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05"}

// parseTimestamp parses an optional feed timestamp; empty input yields nil.
func parseTimestamp(s string) (*time.Time, bool) {
	if s == "" {
		return nil, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}
