package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/utils"
)

const SourceYooKassa = "YooKassa"

type Granter interface {
	GrantTier(ctx context.Context, req ledger.GrantRequest) (*ledger.GrantResult, error)
}

type PaymentStore interface {
	ClaimPayment(ctx context.Context, payment *models.Payment) (bool, error)
	ReleasePayment(ctx context.Context, yookassaID string) error
}

// Handler turns YooKassa notifications into tier grants.
type Handler struct {
	ledger   Granter
	payments PaymentStore
	allowed  utils.CIDRSet
}

func NewHandler(granter Granter, payments PaymentStore, allowed utils.CIDRSet) *Handler {
	return &Handler{
		ledger:   granter,
		payments: payments,
		allowed:  allowed,
	}
}

// NewRouter serves the webhook and a health probe.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	_ = r.SetTrustedProxies(nil)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/webhook/yookassa", h.HandleWebhook)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"ip":     c.ClientIP(),
		}).Debug("HTTP request")
	}
}

func (h *Handler) HandleWebhook(c *gin.Context) {
	ip := c.ClientIP()
	if !h.allowed.Contains(ip) {
		log.WithField("ip", ip).Warn("Rejected webhook from unknown address")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var n notification
	if err := c.ShouldBindJSON(&n); err != nil {
		log.WithError(err).Warn("Failed to decode webhook")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	if n.Event != eventSucceeded {
		log.WithField("event", n.Event).Info("Ignored webhook event")
		c.Status(http.StatusOK)
		return
	}

	if err := h.processSuccess(c.Request.Context(), n.Object); err != nil {
		fields := log.Fields{"paymentID": n.Object.ID, "error": err}
		// non-retryable: acknowledge so YooKassa stops redelivering
		if apperr.IsDomain(err) {
			log.WithFields(fields).Warn("Discarded payment notification")
			c.Status(http.StatusOK)
			return
		}
		log.WithFields(fields).Error("Failed to process payment")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) processSuccess(ctx context.Context, obj paymentObject) error {
	payment, err := obj.record()
	if err != nil {
		return err
	}

	claimed, err := h.payments.ClaimPayment(ctx, payment)
	if err != nil {
		return err
	}
	if !claimed {
		log.WithField("paymentID", obj.ID).Info("Payment already processed")
		return nil
	}

	res, err := h.ledger.GrantTier(ctx, ledger.GrantRequest{
		UserID:       payment.UserID,
		Tier:         payment.Tier,
		Source:       SourceYooKassa,
		DurationDays: payment.DurationDays,
		Expiry:       ledger.ClearExpiry,
	})
	if err != nil {
		// the claim is released so a redelivery can retry the grant
		if !apperr.IsDomain(err) {
			if rerr := h.payments.ReleasePayment(ctx, obj.ID); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}

	log.WithFields(log.Fields{
		"paymentID": obj.ID,
		"userID":    payment.UserID,
		"tier":      payment.Tier,
		"notified":  res.Notified,
	}).Info("Payment applied")
	return nil
}
