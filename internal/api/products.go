package api

import (
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts handles GET /api/products?page&limit&search
func (h *Handler) listProducts(c *gin.Context) {
	page, limit := pageParams(c)

	result, err := h.products.List(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		h.writeError(c, "Failed to fetch products", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.writeError(c, "Failed to fetch product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, "Failed to create product", err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// updateProduct applies a partial update. The SKU in the path is the only
// identity; a sku field in the body is ignored.
func (h *Handler) updateProduct(c *gin.Context) {
	var patch service.ProductPatch

	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), c.Param("sku"), patch)
	if err != nil {
		h.writeError(c, "Failed to update product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	deleted, err := h.products.Delete(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.writeError(c, "Failed to delete product", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) importProducts(c *gin.Context) {
	result, err := h.products.Import(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to import products", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getStock handles GET /api/products/:sku/stock
func (h *Handler) getStock(c *gin.Context) {
	sku := c.Param("sku")

	if _, err := h.products.Get(c.Request.Context(), sku); err != nil {
		h.writeError(c, "Failed to fetch stock", err)
		return
	}

	stock, err := h.ledger.CurrentStock(c.Request.Context(), sku, 0)
	if err != nil {
		h.writeError(c, "Failed to fetch stock", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sku":   sku,
		"stock": stock,
	})
}
