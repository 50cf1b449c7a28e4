package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// ProductHandler handles product-related HTTP endpoints.
type ProductHandler struct {
	catalog *service.CatalogService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// GetProducts returns published products in display order.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.catalog.ListPublished(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Products retrieved successfully", products)
}

// GetProduct returns one published product.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved successfully", p)
}

// AdminGetProducts returns every product including drafts.
func (h *ProductHandler) AdminGetProducts(c *gin.Context) {
	products, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Products retrieved successfully", products)
}

func (h *ProductHandler) AdminGetProduct(c *gin.Context) {
	p, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product retrieved successfully", p)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var in service.ProductInput
	if !bindStrictJSON(c, &in) {
		return
	}
	p, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 201, "Product created", gin.H{"product": p})
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var patch service.ProductPatch
	if !bindStrictJSON(c, &patch) {
		return
	}
	p, err := h.catalog.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product updated", gin.H{"product": p})
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Product deleted", nil)
}

// ReorderProducts handles PATCH /api/products/order {orderedIds}.
func (h *ProductHandler) ReorderProducts(c *gin.Context) {
	var req struct {
		OrderedIDs []string `json:"orderedIds"`
	}
	if !bindStrictJSON(c, &req) {
		return
	}
	products, err := h.catalog.Reorder(c.Request.Context(), req.OrderedIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Products reordered", products)
}
