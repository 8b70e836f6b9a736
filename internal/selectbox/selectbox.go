// Package selectbox implements the search-select component behind the
// creation flows: pick one record from a live-filtered candidate list
// and propagate its identity plus descriptive fields into a dependent
// form (choosing an appointment auto-fills customer and consultant for
// a new treatment outcome).
package selectbox

import (
	"sync"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
)

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateSelected State = "selected"
)

// ResolveFn maps a selected candidate to the dependent form fields it
// auto-fills (foreign keys plus read-only descriptive fields).
type ResolveFn func(model.ViewRow) map[string]string

// Box is the combobox state machine. Filtering runs synchronously
// against the already-loaded candidate generation; no network round
// trip happens per keystroke. The mutex guards against a snapshot
// reload racing user input.
type Box struct {
	mu      sync.Mutex
	cfg     model.EntityConfig
	engine  *query.Engine
	resolve ResolveFn

	state      State
	input      string
	generation string
	candidates []model.ViewRow
	filtered   []model.ViewRow
	selected   *model.ViewRow
	resolved   map[string]string
}

func New(cfg model.EntityConfig, engine *query.Engine, resolve ResolveFn) *Box {
	return &Box{
		cfg:     cfg,
		engine:  engine,
		resolve: resolve,
		state:   StateClosed,
	}
}

// SetCandidates swaps in a new candidate generation. The filtered view
// is recomputed from the new collection, and a previously selected
// candidate that no longer exists reverts the form to the cleared
// state instead of silently retaining orphaned foreign keys.
func (b *Box) SetCandidates(generation string, rows []model.ViewRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation = generation
	b.candidates = rows
	b.refilter()

	if b.selected == nil {
		return nil
	}
	for i := range rows {
		if rows[i].ID == b.selected.ID {
			// Rebind to the new generation's row.
			b.selected = &rows[i]
			b.resolved = b.resolve(rows[i])
			return nil
		}
	}

	staleID := b.selected.ID
	b.clearLocked()
	return errors.StaleSelection(b.cfg.Entity, staleID)
}

// Focus opens the dropdown.
func (b *Box) Focus() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		b.state = StateOpen
	}
}

// Input narrows the candidates on a keystroke, opening the dropdown
// if it was closed.
func (b *Box) Input(q string) []model.ViewRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateSelected {
		b.state = StateOpen
	}
	b.input = q
	b.refilter()
	return b.filtered
}

// Candidates returns the current filtered view.
func (b *Box) Candidates() []model.ViewRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filtered
}

// Select picks a candidate by id, closes the dropdown and resolves the
// dependent fields.
func (b *Box) Select(id string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.candidates {
		if b.candidates[i].ID == id {
			b.selected = &b.candidates[i]
			b.resolved = b.resolve(b.candidates[i])
			b.state = StateSelected
			return b.resolved, nil
		}
	}
	return nil, errors.NotFound(b.cfg.Entity, nil)
}

// Clear resets the selection and every derived field, returning to
// the open state so the user can reselect.
func (b *Box) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
	b.state = StateOpen
	b.refilter()
}

// Dismiss closes the dropdown without altering the current selection.
// Hit-testing the pointer target against the component's bounds is
// the presentation layer's job; it calls this on an outside click.
func (b *Box) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		b.state = StateClosed
	}
}

func (b *Box) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Selection returns the chosen candidate, nil when cleared.
func (b *Box) Selection() *model.ViewRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Resolved returns the dependent form fields for the current
// selection, empty when cleared.
func (b *Box) Resolved() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved == nil {
		return map[string]string{}
	}
	return b.resolved
}

func (b *Box) clearLocked() {
	b.selected = nil
	b.resolved = nil
	b.state = StateClosed
}

func (b *Box) refilter() {
	state := model.NewQueryState(len(b.candidates) + 1)
	state.Search = b.input
	res := b.engine.Run(b.candidates, b.cfg, state)
	b.filtered = res.PageRows
}
