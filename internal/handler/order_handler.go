package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/middleware"
	"github.com/GTDGit/groupbuy_api/internal/models"
	"github.com/GTDGit/groupbuy_api/internal/service"
	"github.com/GTDGit/groupbuy_api/internal/utils"
)

const headerIdempotencyKey = "Idempotency-Key"

// OrderHandler serves storefront checkout and the back-office order queue.
type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemRequest struct {
	ProductID  string        `json:"productId"`
	Title      string        `json:"title"`
	Price      utils.FlexInt `json:"price"`
	ServiceFee utils.FlexInt `json:"serviceFee"`
	Quantity   utils.FlexInt `json:"quantity"`
	Notes      string        `json:"notes"`
}

type createOrderRequest struct {
	MemberID       string             `json:"memberId"`
	PaopaohuID     string             `json:"paopaohuId"`
	Email          string             `json:"email" binding:"required,email"`
	LastFiveDigits string             `json:"lastFiveDigits" binding:"required"`
	TaxID          string             `json:"taxId"`
	Items          []orderItemRequest `json:"items"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder handles POST /api/orders. A repeated Idempotency-Key returns the
// original order with 200.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.CreateOrderInput{
		MemberID:       firstNonEmpty(req.MemberID, req.PaopaohuID),
		Email:          req.Email,
		LastFiveDigits: req.LastFiveDigits,
		TaxID:          req.TaxID,
		Items:          make([]models.OrderItem, len(req.Items)),
	}
	for i, it := range req.Items {
		in.Items[i] = models.OrderItem{
			ProductID:  it.ProductID,
			Title:      it.Title,
			Price:      it.Price.Int(),
			ServiceFee: it.ServiceFee.Int(),
			Quantity:   it.Quantity.Int(),
			Notes:      it.Notes,
		}
	}

	order, replayed, err := h.orders.Create(c.Request.Context(), in, strings.TrimSpace(c.GetHeader(headerIdempotencyKey)))
	if err != nil {
		respondError(c, err)
		return
	}
	if replayed {
		utils.Success(c, 200, "Order already created", gin.H{"order": order})
		return
	}
	utils.Success(c, 201, "Order created", gin.H{"order": order})
}

// GetOrders handles GET /api/orders. Listing acknowledges every new order.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	orders, err := h.orders.ListForAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Orders retrieved successfully", orders)
}

// LookupOrders handles GET /api/orders/lookup?paopaohuId= (memberId also accepted).
func (h *OrderHandler) LookupOrders(c *gin.Context) {
	memberID := firstNonEmpty(c.Query("paopaohuId"), c.Query("memberId"))
	orders, err := h.orders.LookupByMember(c.Request.Context(), memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Orders retrieved successfully", orders)
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status. The status may be
// given as its wire value or its display label.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), models.ParseOrderStatus(req.Status), middleware.GetUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Order status updated", gin.H{"order": order})
}

// DeleteOrder is registered but orders are never deleted.
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	utils.Error(c, 501, "NOT_IMPLEMENTED", "Deleting orders is not supported")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
