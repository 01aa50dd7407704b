package notify

// Outbox holds notices produced inside a transaction. Drain them after the
// commit, Discard them on rollback.
type Outbox struct {
	pending []Notice
}

func (o *Outbox) Add(userID int64, text string) {
	o.pending = append(o.pending, Notice{UserID: userID, Text: text})
}

// Drain returns the pending notices and empties the outbox.
func (o *Outbox) Drain() []Notice {
	out := o.pending
	o.pending = nil
	return out
}

func (o *Outbox) Discard() {
	o.pending = nil
}

func (o *Outbox) Len() int {
	return len(o.pending)
}
