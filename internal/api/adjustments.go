package api

import (
	"net/http"
	"strconv"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

// listAdjustments handles GET /api/adjustments?page&limit&sku
func (h *Handler) listAdjustments(c *gin.Context) {
	page, limit := pageParams(c)

	result, err := h.ledger.List(c.Request.Context(), page, limit, c.Query("sku"))
	if err != nil {
		h.writeError(c, "Failed to fetch adjustment transactions", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getAdjustment(c *gin.Context) {
	id, ok := adjustmentID(c)
	if !ok {
		return
	}

	adj, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to fetch transaction detail", err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

// createAdjustment handles adjustment creation. The idempotency key may be
// sent in the body or in the Idempotency-Key header.
func (h *Handler) createAdjustment(c *gin.Context) {
	var req service.CreateAdjustmentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(idempotencyHeader)
	}

	adj, replayed, err := h.ledger.CreateWithKey(c.Request.Context(), req.IdempotencyKey, req.SKU, *req.Qty)
	if err != nil {
		h.writeError(c, "Failed to create adjustment transaction", err)
		return
	}

	if replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, adj)
		return
	}
	c.JSON(http.StatusCreated, adj)
}

func (h *Handler) updateAdjustment(c *gin.Context) {
	id, ok := adjustmentID(c)
	if !ok {
		return
	}

	var patch service.AdjustmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	adj, err := h.ledger.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, "Failed to update adjustment transaction", err)
		return
	}

	c.JSON(http.StatusOK, adj)
}

func (h *Handler) deleteAdjustment(c *gin.Context) {
	id, ok := adjustmentID(c)
	if !ok {
		return
	}

	deleted, err := h.ledger.Delete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to delete adjustment transaction", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func adjustmentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "Invalid transaction ID", nil)
		return 0, false
	}
	return id, true
}
