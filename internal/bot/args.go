package bot

import (
	"strconv"
	"strings"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/signals"
)

const (
	trackUsage   = "Usage: /track <symbol> <entry_price> <target_price_1> <stop_loss> [tags]"
	upgradeUsage = "Usage: <user_id> <tier> [days]"
)

// commandArgs drops the command itself and splits the rest on whitespace.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

// parseReferrer reads the /start payload. Anything but a positive numeric id
// is ignored.
func parseReferrer(args []string) *int64 {
	if len(args) == 0 {
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func parseTrackArgs(userID int64, args []string) (signals.CreateRequest, error) {
	if len(args) < 4 {
		return signals.CreateRequest{}, apperr.Validation(trackUsage)
	}
	return signals.CreateRequest{
		UserID:       userID,
		Symbol:       args[0],
		EntryPrice:   args[1],
		TargetPrice1: args[2],
		StopLoss:     args[3],
		Tags:         strings.Join(args[4:], " "),
	}, nil
}

// parseAdminUpgrade reads "<user_id> <tier> [days]". The two-word tier
// "Pro Trial" is accepted unquoted.
func parseAdminUpgrade(text string) (ledger.GrantRequest, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ledger.GrantRequest{}, apperr.Validation(upgradeUsage)
	}

	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || userID <= 0 {
		return ledger.GrantRequest{}, apperr.Validation("user id must be a number. %s", upgradeUsage)
	}

	rest := fields[1:]
	var tier models.Tier
	var ok bool
	if len(rest) >= 2 {
		if tier, ok = models.ParseTier(rest[0] + " " + rest[1]); ok {
			rest = rest[2:]
		}
	}
	if !ok {
		if tier, ok = models.ParseTier(rest[0]); !ok {
			return ledger.GrantRequest{}, apperr.Validation("invalid tier %q, valid tiers are: %s", rest[0], tierList())
		}
		rest = rest[1:]
	}

	req := ledger.GrantRequest{
		UserID: userID,
		Tier:   tier,
		Source: ledger.SourceAdminUpgrade,
		Expiry: ledger.KeepExpiry,
	}
	switch len(rest) {
	case 0:
	case 1:
		days, err := strconv.Atoi(rest[0])
		if err != nil {
			return ledger.GrantRequest{}, apperr.Validation("duration must be a number of days. %s", upgradeUsage)
		}
		req.DurationDays = &days
	default:
		return ledger.GrantRequest{}, apperr.Validation(upgradeUsage)
	}
	return req, nil
}

// parseCallbackID extracts the numeric id from callback data like "sig:12".
func parseCallbackID(data, prefix string) (uint, bool) {
	raw, found := strings.CutPrefix(data, prefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func tierList() string {
	tiers := models.Tiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
