package handler

import (
	"io"
	"net/http"

	"fitcrush/internal/domain"
	"fitcrush/internal/middleware"
	"fitcrush/internal/service"
	"fitcrush/pkg/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type BillingHandler struct {
	billing *service.BillingService
	ledger  *service.LedgerService
}

func NewBillingHandler(billing *service.BillingService, ledger *service.LedgerService) *BillingHandler {
	return &BillingHandler{billing: billing, ledger: ledger}
}

// Packages lists the catalogue.
// GET /billing/packages
func (h *BillingHandler) Packages(c *gin.Context) {
	list := domain.PackageList()
	out := make([]gin.H, 0, len(list))
	for _, p := range list {
		out = append(out, gin.H{
			"id":          p.ID,
			"kind":        p.Kind,
			"name":        p.Name,
			"crushes":     p.Crushes,
			"period_days": p.PeriodDays,
			"price":       p.Price(),
			"currency":    p.Currency,
		})
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

// Purchase starts a checkout. Nothing is credited until the provider confirms.
// POST /billing/purchase
func (h *BillingHandler) Purchase(c *gin.Context) {
	var req struct {
		PackageID string `json:"package_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "package_id required")
		return
	}
	p, err := h.billing.Purchase(c.Request.Context(), middleware.GetUserID(c), req.PackageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reference":    p.Reference,
		"status":       p.Status,
		"checkout_url": p.CheckoutURL,
	})
}

// Payments lists the caller's payments.
// GET /billing/payments
func (h *BillingHandler) Payments(c *gin.Context) {
	limit, offset := page(c, 20)
	list, err := h.billing.ListPayments(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": list})
}

// CancelSubscription asks the provider to stop renewing.
// POST /billing/subscription/cancel
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	if err := h.billing.CancelSubscription(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation_requested"})
}

// Ledger returns balance, tier and history.
// GET /me/ledger
func (h *BillingHandler) Ledger(c *gin.Context) {
	limit, offset := page(c, 20)
	sum, err := h.ledger.Summary(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Webhook receives signed provider callbacks.
// POST /webhooks/payment
func (h *BillingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "invalid body")
		return
	}
	res, err := h.billing.HandleWebhook(c.Request.Context(), body, c.GetHeader(payment.SignatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
