package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nitindhyani1996/recon-backend/internal/api/dto"
	"github.com/nitindhyani1996/recon-backend/internal/infrastructure/storage"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// TransactionsHandler handles bulk feed uploads.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository, logger *slog.Logger) *TransactionsHandler {
	return &TransactionsHandler{Base: NewBase(repo, logger)}
}

// UploadATM handles POST /api/v1/transactions/atm.
func (h *TransactionsHandler) UploadATM(c *gin.Context) {
	var req dto.UploadATMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid upload payload: "+err.Error()))
		return
	}

	txns := make([]*storage.ATMTransaction, 0, len(req.Transactions))
	for i, t := range req.Transactions {
		ts, ok := parseTimestamp(t.DateTime)
		if !ok {
			c.JSON(http.StatusBadRequest, dto.ValidationError(fmt.Sprintf("transaction %d: invalid datetime %q", i, t.DateTime)))
			return
		}
		txns = append(txns, &storage.ATMTransaction{
			DateTime:        ts,
			TerminalID:      t.TerminalID,
			Location:        t.Location,
			ATMIndex:        t.ATMIndex,
			PANMasked:       t.PANMasked,
			AccountMasked:   t.AccountMasked,
			TransactionType: t.TransactionType,
			Amount:          t.Amount,
			Currency:        t.Currency,
			STAN:            t.STAN,
			RRN:             t.RRN,
			Auth:            t.Auth,
			ResponseCode:    t.ResponseCode,
			ResponseDesc:    t.ResponseDesc,
		})
	}

	inserted, err := h.repo.InsertATMTransactions(c.Request.Context(), txns)
	if err != nil {
		h.logger.Error("failed to insert atm transactions", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusCreated, dto.UploadResponse{Source: string(recon.SourceATM), Inserted: inserted})
}

// UploadSwitch handles POST /api/v1/transactions/switch.
func (h *TransactionsHandler) UploadSwitch(c *gin.Context) {
	var req dto.UploadSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid upload payload: "+err.Error()))
		return
	}

	txns := make([]*storage.SwitchTransaction, 0, len(req.Transactions))
	for i, t := range req.Transactions {
		ts, ok := parseTimestamp(t.DateTime)
		if !ok {
			c.JSON(http.StatusBadRequest, dto.ValidationError(fmt.Sprintf("transaction %d: invalid datetime %q", i, t.DateTime)))
			return
		}
		txns = append(txns, &storage.SwitchTransaction{
			DateTime:       ts,
			Direction:      t.Direction,
			MTI:            t.MTI,
			PANMasked:      t.PANMasked,
			ProcessingCode: t.ProcessingCode,
			AmountMinor:    t.AmountMinor,
			Currency:       t.Currency,
			STAN:           t.STAN,
			RRN:            t.RRN,
			TerminalID:     t.TerminalID,
			Source:         t.Source,
			Destination:    t.Destination,
			ResponseCode:   t.ResponseCode,
			AuthID:         t.AuthID,
		})
	}

	inserted, err := h.repo.InsertSwitchTransactions(c.Request.Context(), txns)
	if err != nil {
		h.logger.Error("failed to insert switch transactions", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusCreated, dto.UploadResponse{Source: string(recon.SourceSwitch), Inserted: inserted})
}

// UploadCBS handles POST /api/v1/transactions/cbs.
func (h *TransactionsHandler) UploadCBS(c *gin.Context) {
	var req dto.UploadCBSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid upload payload: "+err.Error()))
		return
	}

	txns := make([]*storage.CBSTransaction, 0, len(req.Transactions))
	for i, t := range req.Transactions {
		ts, ok := parseTimestamp(t.PostedDateTime)
		if !ok {
			c.JSON(http.StatusBadRequest, dto.ValidationError(fmt.Sprintf("transaction %d: invalid posted_datetime %q", i, t.PostedDateTime)))
			return
		}
		txns = append(txns, &storage.CBSTransaction{
			PostedDateTime: ts,
			FCTxnID:        t.FCTxnID,
			RRN:            t.RRN,
			STAN:           t.STAN,
			AccountMasked:  t.AccountMasked,
			DR:             t.DR,
			CR:             t.CR,
			Currency:       t.Currency,
			Status:         t.Status,
			Description:    t.Description,
		})
	}

	inserted, err := h.repo.InsertCBSTransactions(c.Request.Context(), txns)
	if err != nil {
		h.logger.Error("failed to insert cbs transactions", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}
	c.JSON(http.StatusCreated, dto.UploadResponse{Source: string(recon.SourceCBS), Inserted: inserted})
}
