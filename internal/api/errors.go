package api

import (
	"errors"
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps service errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, message string, err error) {
	if nse, ok := service.IsNegativeStock(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Transaction would result in negative stock",
			"currentStock": nse.CurrentStock,
			"requestedQty": nse.RequestedQty,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, service.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, service.ErrSKUExists):
		c.JSON(http.StatusConflict, gin.H{"error": "SKU already exists"})
	case errors.Is(err, service.ErrRequestInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Request in progress",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidPrice), errors.Is(err, service.ErrQtyOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	default:
		h.logger.Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
