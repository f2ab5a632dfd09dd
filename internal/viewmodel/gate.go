package viewmodel

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/nhle/guest-review/internal/model"
)

// Gate decides which roles see edit and delete actions. It only hides
// affordances; the backend enforces authorization.
type Gate struct {
	Edit   []string
	Delete []string
}

// MasterOnly gates both actions to the Master role.
func MasterOnly() Gate {
	return Gate{Edit: []string{model.RoleMaster}, Delete: []string{model.RoleMaster}}
}

// Open allows every role.
func Open() Gate {
	return Gate{}
}

// CanEdit reports whether role may see edit actions. An empty allow-list
// allows everyone.
func (g Gate) CanEdit(role string) bool {
	return allowed(g.Edit, role)
}

// CanDelete reports whether role may see delete actions.
func (g Gate) CanDelete(role string) bool {
	return allowed(g.Delete, role)
}

func allowed(list []string, role string) bool {
	if len(list) == 0 {
		return true
	}
	for _, r := range list {
		if r == role {
			return true
		}
	}
	return false
}

// ErrNoPendingDelete is returned by Confirm when nothing was requested.
var ErrNoPendingDelete = errors.New("no delete pending")

// Deleter removes a record by id; every api.Collection satisfies it.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// DeleteFlow is the two-step request/confirm protocol for deletions.
type DeleteFlow struct {
	deleter Deleter
	refresh func()

	mu      gosync.Mutex
	pending string
	active  bool
}

// NewDeleteFlow returns a flow that deletes through d and calls refresh
// after every confirmation, successful or not.
func NewDeleteFlow(d Deleter, refresh func()) *DeleteFlow {
	return &DeleteFlow{deleter: d, refresh: refresh}
}

// Request marks id as pending deletion and opens the confirmation state.
func (f *DeleteFlow) Request(id string) {
	f.mu.Lock()
	f.pending = id
	f.active = true
	f.mu.Unlock()
}

// Pending returns the id awaiting confirmation.
func (f *DeleteFlow) Pending() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, f.active
}

// Take clears the pending state and returns the id that was pending.
// Callers that run the delete asynchronously take the id first so the
// confirmation state closes immediately.
func (f *DeleteFlow) Take() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, active := f.pending, f.active
	f.pending, f.active = "", false
	return id, active
}

// Confirm deletes the pending record. Pending state is cleared and the
// list refreshed regardless of the outcome; the delete error is returned.
func (f *DeleteFlow) Confirm(ctx context.Context) error {
	id, active := f.Take()
	if !active {
		return ErrNoPendingDelete
	}
	return f.Delete(ctx, id)
}

// Delete removes id and refreshes the list whether or not it succeeded.
func (f *DeleteFlow) Delete(ctx context.Context, id string) error {
	err := f.deleter.Delete(ctx, id)
	if f.refresh != nil {
		f.refresh()
	}
	return err
}

// Cancel clears the pending state without contacting the backend.
func (f *DeleteFlow) Cancel() {
	f.mu.Lock()
	f.pending, f.active = "", false
	f.mu.Unlock()
}
