package payment

import (
	"strconv"

	"github.com/shopspring/decimal"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
)

// YooKassa v3 wire format, limited to the fields the bot reads or sends.

const (
	metaTelegramID   = "telegram_id"
	metaTier         = "tier"
	metaDurationDays = "duration_days"

	eventSucceeded = "payment.succeeded"
)

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentRequest struct {
	Amount       money             `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Confirmation confirmation `json:"confirmation"`
}

type notification struct {
	Event  string        `json:"event"`
	Object paymentObject `json:"object"`
}

type paymentObject struct {
	ID       string            `json:"id"`
	Paid     bool              `json:"paid"`
	Amount   money             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// record validates a succeeded payment and turns it into the row that
// claims it. Only tiers above the trial can be bought.
func (o paymentObject) record() (*models.Payment, error) {
	if o.ID == "" || !o.Paid {
		return nil, apperr.Validation("payment %q is not paid", o.ID)
	}

	userID, err := strconv.ParseInt(o.Metadata[metaTelegramID], 10, 64)
	if err != nil {
		return nil, apperr.Validation("payment %s has invalid telegram_id", o.ID)
	}
	tier, ok := models.ParseTier(o.Metadata[metaTier])
	if !ok || !tier.Outranks(models.TierProTrial) {
		return nil, apperr.Validation("payment %s has invalid tier %q", o.ID, o.Metadata[metaTier])
	}
	var duration *int
	if raw := o.Metadata[metaDurationDays]; raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperr.Validation("payment %s has invalid duration %q", o.ID, raw)
		}
		duration = &days
	}
	amount, err := decimal.NewFromString(o.Amount.Value)
	if err != nil {
		return nil, apperr.Validation("payment %s has invalid amount %q", o.ID, o.Amount.Value)
	}

	return &models.Payment{
		UserID:       userID,
		Amount:       amount,
		Currency:     o.Amount.Currency,
		Tier:         tier,
		DurationDays: duration,
		Status:       models.PaymentSucceeded,
		YooKassaID:   o.ID,
	}, nil
}
