package signals

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"targethawk-bot/internal/apperr"
)

const (
	maxSymbolLen = 20
	maxTagsLen   = 255

	// prices are stored as NUMERIC(20,8)
	priceIntDigits = 12
	priceScale     = 8
)

var maxPrice = decimal.New(1, priceIntDigits)

type fieldKind int

const (
	kindSymbol fieldKind = iota
	kindPrice
	kindOptionalPrice
	kindTags
)

// editable maps the user-facing field name to its column. Nothing outside
// this table can be written through UpdateField.
var editable = map[string]fieldKind{
	"symbol":         kindSymbol,
	"entry_price":    kindPrice,
	"target_price_1": kindPrice,
	"target_price_2": kindOptionalPrice,
	"target_price_3": kindOptionalPrice,
	"stop_loss":      kindPrice,
	"tags":           kindTags,
}

var fieldOrder = []string{
	"symbol",
	"entry_price",
	"target_price_1",
	"target_price_2",
	"target_price_3",
	"stop_loss",
	"tags",
}

var (
	ErrInvalidField = &apperr.ValidationError{Msg: "that field cannot be edited"}
	ErrInvalidValue = &apperr.ValidationError{Msg: "invalid value"}
)

// EditableFields lists the fields UpdateField accepts, in display order.
func EditableFields() []string {
	return append([]string(nil), fieldOrder...)
}

func IsEditable(field string) bool {
	_, ok := editable[field]
	return ok
}

var policy = bluemonday.StrictPolicy()

// cleanText strips markup and control characters from free text.
func cleanText(s string) string {
	s = html.UnescapeString(policy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func parseSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(cleanText(raw))
	if symbol == "" {
		return "", valueError("symbol is required")
	}
	if len([]rune(symbol)) > maxSymbolLen {
		return "", valueError("symbol must be at most 20 characters")
	}
	return symbol, nil
}

func parsePrice(name, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, valueError("%s must be a number, got %q", name, raw)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, valueError("%s must not be negative", name)
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, valueError("%s must have at most %d integer digits", name, priceIntDigits)
	}
	if !d.Equal(d.Truncate(priceScale)) {
		return decimal.Decimal{}, valueError("%s must have at most %d decimal places", name, priceScale)
	}
	return d, nil
}

func parseTags(raw string) (string, error) {
	tags := cleanText(raw)
	if len([]rune(tags)) > maxTagsLen {
		return "", valueError("tags must be at most 255 characters")
	}
	return tags, nil
}

// parseFieldValue converts raw into the value stored in the field's column.
// Optional prices accept "-" to clear them.
func parseFieldValue(field, raw string) (any, error) {
	kind, ok := editable[field]
	if !ok {
		return nil, ErrInvalidField
	}
	switch kind {
	case kindSymbol:
		return parseSymbol(raw)
	case kindPrice:
		return parsePrice(field, raw)
	case kindOptionalPrice:
		if strings.TrimSpace(raw) == "-" {
			return decimal.NullDecimal{}, nil
		}
		d, err := parsePrice(field, raw)
		if err != nil {
			return nil, err
		}
		return decimal.NewNullDecimal(d), nil
	default:
		return parseTags(raw)
	}
}

type valueErr struct {
	msg string
}

func (e *valueErr) Error() string { return e.msg }

func (e *valueErr) Is(target error) bool {
	return target == ErrInvalidValue || target == apperr.ErrValidation
}

func valueError(format string, args ...any) error {
	return &valueErr{msg: fmt.Sprintf(format, args...)}
}
