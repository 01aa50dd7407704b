package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrUnexpectedState = errors.New("unexpected conversation state")

// Machine applies the allowed transitions of the edit, delete and admin
// upgrade flows. Starting a flow replaces whatever flow was active.
type Machine struct {
	store Store
	now   func() time.Time
}

func NewMachine(store Store) *Machine {
	return &Machine{store: store, now: time.Now}
}

func (m *Machine) Current(ctx context.Context, key Key) (*Conversation, error) {
	return m.store.Load(ctx, key)
}

func (m *Machine) StartEdit(ctx context.Context, key Key) error {
	return m.save(ctx, key, &Conversation{State: StateAwaitingSignal})
}

func (m *Machine) StartDelete(ctx context.Context, key Key) error {
	return m.save(ctx, key, &Conversation{State: StateAwaitingDeletion})
}

func (m *Machine) StartAdminUpgrade(ctx context.Context, key Key) error {
	return m.save(ctx, key, &Conversation{State: StateAwaitingAdminUpgrade})
}

// SelectSignal moves an edit from signal choice to field choice.
func (m *Machine) SelectSignal(ctx context.Context, key Key, signalID uint) error {
	conv, err := m.expect(ctx, key, StateAwaitingSignal)
	if err != nil {
		return err
	}
	conv.State = StateAwaitingField
	conv.SignalID = signalID
	return m.save(ctx, key, conv)
}

// SelectField moves an edit from field choice to value entry.
func (m *Machine) SelectField(ctx context.Context, key Key, field string) (*Conversation, error) {
	conv, err := m.expect(ctx, key, StateAwaitingField)
	if err != nil {
		return nil, err
	}
	conv.State = StateAwaitingValue
	conv.Field = field
	if err := m.save(ctx, key, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ToggleDeletion adds or removes id from the pending deletion set and
// returns the new selection. Concurrent taps on the same menu are applied
// one after the other.
func (m *Machine) ToggleDeletion(ctx context.Context, key Key, id uint) ([]uint, error) {
	var selected []uint
	err := m.store.Update(ctx, key, func(conv *Conversation) error {
		if err := checkState(conv, StateAwaitingDeletion); err != nil {
			return err
		}
		if conv.IsSelected(id) {
			kept := conv.Selected[:0]
			for _, s := range conv.Selected {
				if s != id {
					kept = append(kept, s)
				}
			}
			conv.Selected = kept
		} else {
			conv.Selected = append(conv.Selected, id)
		}
		conv.UpdatedAt = m.now().UTC()
		selected = conv.Selected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

// Complete runs the terminal step of a flow in state want. The
// conversation is cleared afterwards whatever fn returns.
func (m *Machine) Complete(ctx context.Context, key Key, want State, fn func(conv *Conversation) error) error {
	conv, err := m.expect(ctx, key, want)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.store.Clear(ctx, key); err != nil {
			log.WithFields(log.Fields{
				"session": key.String(),
				"error":   err,
			}).Warn("Failed to clear session")
		}
	}()
	return fn(conv)
}

// Cancel clears the conversation and reports whether a flow was active.
func (m *Machine) Cancel(ctx context.Context, key Key) (bool, error) {
	conv, err := m.store.Load(ctx, key)
	if err != nil {
		return false, err
	}
	if err := m.store.Clear(ctx, key); err != nil {
		return false, err
	}
	return conv.State != StateIdle, nil
}

func (m *Machine) expect(ctx context.Context, key Key, want State) (*Conversation, error) {
	conv, err := m.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := checkState(conv, want); err != nil {
		return nil, err
	}
	return conv, nil
}

func checkState(conv *Conversation, want State) error {
	if conv.State != want {
		return fmt.Errorf("%w: in %s, expected %s", ErrUnexpectedState, conv.State, want)
	}
	return nil
}

func (m *Machine) save(ctx context.Context, key Key, conv *Conversation) error {
	conv.UpdatedAt = m.now().UTC()
	return m.store.Save(ctx, key, conv)
}
