package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Awerito/ulatickets-api/internal/dto"
	"github.com/Awerito/ulatickets-api/internal/service"
	"github.com/Awerito/ulatickets-api/pkg/response"
	"github.com/Awerito/ulatickets-api/pkg/telemetry"
)

// CheckoutHandler handles checkout and purchase HTTP requests
type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// Checkout handles POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.checkout")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(attribute.String("reservation_id", req.ReservationID))

	purchase, err := h.checkoutService.Checkout(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		respondError(c, err)
		return
	}

	span.SetAttributes(attribute.String("purchase_id", purchase.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, purchase)
}

// GetPurchase handles GET /purchases/:id
func (h *CheckoutHandler) GetPurchase(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.checkout.get_purchase")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id := c.Param("id")
	span.SetAttributes(attribute.String("purchase_id", id))

	purchase, err := h.checkoutService.GetPurchase(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		respondError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.PurchaseFromDomain(purchase))
}
