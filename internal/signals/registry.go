// Package signals stores user-authored trade signals and enforces that only
// their owner can change them.
package signals

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
)

type CreateRequest struct {
	UserID       int64
	Symbol       string
	EntryPrice   string
	TargetPrice1 string
	StopLoss     string
	Tags         string
}

// Summary is the short form shown in signal pickers.
type Summary struct {
	ID     uint
	Symbol string
	Status models.SignalStatus
}

type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Create validates the request and stores an Open signal.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*models.Signal, error) {
	symbol, err := parseSymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	entry, err := parsePrice("entry_price", req.EntryPrice)
	if err != nil {
		return nil, err
	}
	target, err := parsePrice("target_price_1", req.TargetPrice1)
	if err != nil {
		return nil, err
	}
	stop, err := parsePrice("stop_loss", req.StopLoss)
	if err != nil {
		return nil, err
	}
	tags, err := parseTags(req.Tags)
	if err != nil {
		return nil, err
	}

	signal := &models.Signal{
		UserID:       req.UserID,
		Symbol:       symbol,
		EntryPrice:   entry,
		TargetPrice1: target,
		StopLoss:     stop,
		Status:       models.SignalOpen,
		Tags:         tags,
	}
	if err := r.store.CreateSignal(ctx, signal); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("you are not registered yet, send /start first")
		}
		return nil, apperr.Store("create signal", err)
	}

	log.WithFields(log.Fields{
		"userID":   req.UserID,
		"signalID": signal.ID,
		"symbol":   signal.Symbol,
	}).Info("Signal created")
	return signal, nil
}

// ListForOwner returns the user's signals, newest first.
func (r *Registry) ListForOwner(ctx context.Context, userID int64) ([]Summary, error) {
	rows, err := r.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list signals", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, s := range rows {
		out = append(out, Summary{ID: s.ID, Symbol: s.Symbol, Status: s.Status})
	}
	return out, nil
}

// UpdateField changes one editable field of a signal owned by actingUserID.
// The field is checked against the allow-list before any store access.
func (r *Registry) UpdateField(ctx context.Context, signalID uint, field, value string, actingUserID int64) error {
	if !IsEditable(field) {
		return ErrInvalidField
	}
	parsed, err := parseFieldValue(field, value)
	if err != nil {
		return err
	}

	n, err := r.store.UpdateOwnedField(ctx, signalID, actingUserID, field, parsed)
	if err != nil {
		return apperr.Store("update signal", err)
	}
	if n > 0 {
		log.WithFields(log.Fields{
			"userID":   actingUserID,
			"signalID": signalID,
			"field":    field,
		}).Info("Signal updated")
		return nil
	}

	exists, err := r.store.SignalExists(ctx, signalID)
	if err != nil {
		return apperr.Store("update signal", err)
	}
	if !exists {
		return apperr.NotFound("signal %d does not exist", signalID)
	}
	log.WithFields(log.Fields{
		"userID":   actingUserID,
		"signalID": signalID,
	}).Warn("Rejected update of a signal owned by another user")
	return apperr.ErrNotOwner
}

// DeleteMany removes the listed signals that belong to actingUserID and
// returns how many were removed. An empty list is a no-op.
func (r *Registry) DeleteMany(ctx context.Context, ids []uint, actingUserID int64) (int64, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.store.DeleteOwned(ctx, ids, actingUserID)
	if err != nil {
		return 0, apperr.Store("delete signals", err)
	}
	log.WithFields(log.Fields{
		"userID":    actingUserID,
		"requested": len(ids),
		"deleted":   n,
	}).Info("Signals deleted")
	return n, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
