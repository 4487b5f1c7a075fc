package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/dto"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// RulesHandler handles matching rule CRUD requests.
type RulesHandler struct {
	*Base
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(repo storage.Repository, logger *slog.Logger) *RulesHandler {
	return &RulesHandler{Base: NewBase(repo, logger)}
}

// Create handles POST /api/v1/matching-rules.
func (h *RulesHandler) Create(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid rule payload: "+err.Error()))
		return
	}
	if len(req.MatchCondition.MatchingGroups) == 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("matchCondition must contain at least one matching group"))
		return
	}

	saved, err := h.repo.SaveRule(c.Request.Context(), req.ToRule())
	if err != nil {
		h.logger.Error("failed to save rule", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusCreated, dto.ToRuleResponse(saved))
}

// List handles GET /api/v1/matching-rules.
func (h *RulesHandler) List(c *gin.Context) {
	owner := c.Query("addedBy")
	category := -1
	if v := c.Query("ruleCategory"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid ruleCategory"))
			return
		}
		category = parsed
	}

	rules, err := h.repo.ListRules(c.Request.Context(), owner, category)
	if err != nil {
		h.logger.Error("failed to list rules", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	out := make([]dto.RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, dto.ToRuleResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /api/v1/matching-rules/:id.
func (h *RulesHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid rule ID"))
		return
	}

	rule, err := h.repo.GetRule(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get rule", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("matching rule"))
		return
	}
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// Update handles PUT /api/v1/matching-rules/:id.
func (h *RulesHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid rule ID"))
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid rule payload: "+err.Error()))
		return
	}

	updated, err := h.repo.UpdateRule(c.Request.Context(), id, storage.RuleUpdate{
		Owner:          req.AddedBy,
		Category:       req.RuleCategory,
		BasicDetails:   req.Basic,
		Classification: req.Classification,
		MatchCondition: req.MatchCondition,
		Tolerance:      req.Tolerance,
	})
	if err != nil {
		h.logger.Error("failed to update rule", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("matching rule"))
		return
	}
	c.JSON(http.StatusOK, dto.ToRuleResponse(updated))
}

// SourceFields handles GET /api/v1/matching-rules/source-fields/:source,
// listing the matchable columns of one feed for the rule editor.
func (h *RulesHandler) SourceFields(c *gin.Context) {
	source, ok := recon.ParseSource(c.Param("source"))
	if !ok {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("unknown source, expected ATM, SWITCH or CBS"))
		return
	}

	fields, err := h.repo.SourceFields(c.Request.Context(), source)
	if err != nil {
		h.logger.Error("failed to list source fields", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source, "fields": fields})
}
