package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Categories retrieved successfully", list)
}
