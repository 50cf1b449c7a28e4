package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

// RequestHandler serves purchase-on-behalf requests.
type RequestHandler struct {
	requests *service.RequestService
}

func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

type createRequestRequest struct {
	MemberID    string        `json:"memberId"`
	PaopaohuID  string        `json:"paopaohuId"`
	ContactInfo string        `json:"contactInfo" binding:"required"`
	Email       string        `json:"email" binding:"omitempty,email"`
	ProductURL  string        `json:"productUrl" binding:"required,url"`
	ProductName string        `json:"productName" binding:"required"`
	Specs       string        `json:"specs"`
	Quantity    utils.FlexInt `json:"quantity"`
	Notes       string        `json:"notes"`
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req createRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.CreateRequestInput{
		MemberID:    firstNonEmpty(req.MemberID, req.PaopaohuID),
		ContactInfo: req.ContactInfo,
		Email:       req.Email,
		ProductURL:  req.ProductURL,
		ProductName: req.ProductName,
		Specs:       req.Specs,
		Quantity:    req.Quantity.Int(),
		Notes:       req.Notes,
	}
	r, replayed, err := h.requests.Create(c.Request.Context(), in, strings.TrimSpace(c.GetHeader(headerIdempotencyKey)))
	if err != nil {
		respondError(c, err)
		return
	}
	if replayed {
		utils.Success(c, 200, "Request already received", gin.H{"request": r})
		return
	}
	utils.Success(c, 201, "Request received", gin.H{"request": r})
}

func (h *RequestHandler) GetRequests(c *gin.Context) {
	list, err := h.requests.ListForAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Requests retrieved successfully", list)
}

func (h *RequestHandler) UpdateRequestStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.requests.UpdateStatus(c.Request.Context(), c.Param("id"), models.ParseRequestStatus(req.Status), middleware.GetUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Request status updated", gin.H{"request": r})
}
