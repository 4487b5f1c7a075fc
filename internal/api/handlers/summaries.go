package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/dto"
	"github.com/nitindhyani1996/recon-backend/internal/codec"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
)

// SummariesHandler serves persisted reconciliation run summaries.
type SummariesHandler struct {
	*Base
}

// NewSummariesHandler creates a new summaries handler.
func NewSummariesHandler(repo storage.Repository, logger *slog.Logger) *SummariesHandler {
	return &SummariesHandler{Base: NewBase(repo, logger)}
}

// Latest handles GET /api/v1/recon-summaries/latest.
func (h *SummariesHandler) Latest(c *gin.Context) {
	summary, err := h.repo.GetLatestSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load latest summary", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("reconciliation summary"))
		return
	}
	c.JSON(http.StatusOK, toSummaryResponse(summary))
}

// ByReference handles GET /api/v1/recon-summaries/:reference.
func (h *SummariesHandler) ByReference(c *gin.Context) {
	reference := c.Param("reference")

	summary, err := h.repo.GetSummaryByReference(c.Request.Context(), reference)
	if err != nil {
		h.logger.Error("failed to load summary", "reference", reference, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("reconciliation summary"))
		return
	}
	c.JSON(http.StatusOK, toSummaryResponse(summary))
}

// Delete handles DELETE /api/v1/recon-summaries/:reference.
func (h *SummariesHandler) Delete(c *gin.Context) {
	reference := c.Param("reference")

	if err := h.repo.DeleteSummary(c.Request.Context(), reference); err != nil {
		h.logger.Error("failed to delete summary", "reference", reference, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.Status(http.StatusNoContent)
}

// toSummaryResponse decodes the stored buckets into display rows.
func toSummaryResponse(s *storage.ReconSummary) dto.SummaryResponse {
	return dto.SummaryResponse{
		Reference:        s.Reference,
		Matched:          codec.Project(codec.Decode(s.MatchedEncoded)),
		PartiallyMatched: codec.Project(codec.Decode(s.PartialEncoded)),
		Unmatched:        codec.Project(codec.Decode(s.UnmatchedEncoded)),
		AddedBy:          s.AddedBy,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
