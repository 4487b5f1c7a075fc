package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/dto"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// MatchingHandler serves the live presence aggregates computed over the
// raw feeds, independent of any stored run.
type MatchingHandler struct {
	*Base
}

// NewMatchingHandler creates a new matching handler.
func NewMatchingHandler(repo storage.Repository, logger *slog.Logger) *MatchingHandler {
	return &MatchingHandler{Base: NewBase(repo, logger)}
}

// Summary handles GET /api/v1/matching/summary.
func (h *MatchingHandler) Summary(c *gin.Context) {
	totals, err := h.repo.MatchTotals(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to compute match totals", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusOK, totals)
}

// FullyMatched handles GET /api/v1/matching/fully-matched.
func (h *MatchingHandler) FullyMatched(c *gin.Context) {
	q := pageQuery(c)
	rows, total, err := h.repo.ListFullyMatched(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("failed to list fully matched", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Status:    "success",
		MatchType: storage.StatusFullyMatched,
		Total:     total,
		Offset:    q.Offset,
		Limit:     q.Limit,
		Data:      rows,
	})
}

// PartiallyMatched handles GET /api/v1/matching/partially-matched.
func (h *MatchingHandler) PartiallyMatched(c *gin.Context) {
	q := pageQuery(c)
	rows, total, err := h.repo.ListPartiallyMatched(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("failed to list partially matched", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Status:    "success",
		MatchType: storage.StatusPartiallyMatched,
		Total:     total,
		Offset:    q.Offset,
		Limit:     q.Limit,
		Data:      rows,
	})
}

// Unmatched handles GET /api/v1/matching/unmatched. An optional source
// query parameter restricts results to one feed.
func (h *MatchingHandler) Unmatched(c *gin.Context) {
	q := pageQuery(c)
	if v := c.Query("source"); v != "" {
		source, ok := recon.ParseSource(v)
		if !ok {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("unknown source, expected ATM, SWITCH or CBS"))
			return
		}
		q.Source = source
	}

	rows, total, err := h.repo.ListUnmatched(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("failed to list unmatched", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Status:    "success",
		MatchType: storage.StatusUnmatched,
		Total:     total,
		Offset:    q.Offset,
		Limit:     q.Limit,
		Data:      rows,
	})
}

// RRN handles GET /api/v1/matching/rrn/:rrn, the per-reference
// investigation view.
func (h *MatchingHandler) RRN(c *gin.Context) {
	detail, err := h.repo.InvestigateRRN(c.Request.Context(), c.Param("rrn"))
	if err != nil {
		h.logger.Error("failed to investigate rrn", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("rrn"))
		return
	}
	c.JSON(http.StatusOK, detail)
}
