// Package editsession turns free-text field edits into provenance-tracked
// updates of a plan's input document.
package editsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/fields"
	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
	"go.uber.org/zap"
)

// ErrSaveInFlight is returned when an edit starts while a save is running.
var ErrSaveInFlight = errors.New("a save is already in flight")

// State is the edit lifecycle position.
type State int

const (
	Idle State = iota
	Editing
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SaveFunc persists a full updated input document.
type SaveFunc func(ctx context.Context, inputs plan.FinancialInputs) error

// Session edits one field at a time.
type Session struct {
	mu sync.Mutex

	inputs func() plan.FinancialInputs
	save   SaveFunc
	saving func() bool
	now    func() time.Time
	logger *zap.Logger

	state    State
	ref      plan.FieldRef
	meta     fields.Metadata
	current  plan.FinancialFieldValue
	buffer   string
	suppress bool
	inFlight bool
}

// Option configures a Session.
type Option func(*Session)

// WithSavingCheck reports saves issued outside this session, such as a
// startup-cost save, so StartEdit can refuse while one runs.
func WithSavingCheck(saving func() bool) Option {
	return func(s *Session) { s.saving = saving }
}

// WithNow sets the clock used for modification timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session. inputs returns the latest document each time an
// update is built, and save receives the whole replacement document.
func New(inputs func() plan.FinancialInputs, save SaveFunc, opts ...Option) *Session {
	s := &Session{
		inputs: inputs,
		save:   save,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffer returns the text being edited.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Ref returns the field being edited.
func (s *Session) Ref() plan.FieldRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

func (s *Session) savingLocked() bool {
	if s.inFlight {
		return true
	}
	return s.saving != nil && s.saving()
}

// StartEdit opens ref for editing, seeding the buffer from current.
func (s *Session) StartEdit(ref plan.FieldRef, current plan.FinancialFieldValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.savingLocked() {
		return ErrSaveInFlight
	}
	meta, ok := fields.Lookup(ref.Category, ref.Name)
	if !ok || meta.List != ref.List {
		return fmt.Errorf("%w: %s", plan.ErrUnknownField, ref)
	}

	s.state = Editing
	s.ref = ref
	s.meta = meta
	s.current = current
	s.buffer = fields.FormatEditBuffer(current.CurrentValue, meta.Format)
	s.suppress = false
	return nil
}

// SetBuffer replaces the edit text. It is ignored outside an edit.
func (s *Session) SetBuffer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Editing {
		s.buffer = text
	}
}

// CommitEdit parses the buffer and saves it when the value changed. It
// reports whether a save was issued. Text that does not parse is dropped
// without an error.
func (s *Session) CommitEdit(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.suppress {
		s.suppress = false
		s.state = Idle
		s.mu.Unlock()
		return false, nil
	}
	if s.state != Editing {
		s.mu.Unlock()
		return false, nil
	}

	ref, meta, current, buffer := s.ref, s.meta, s.current, s.buffer
	s.buffer = ""
	value, ok := fields.ParseFieldInput(buffer, meta.Format)
	if !ok {
		s.state = Idle
		s.mu.Unlock()
		s.logger.Debug("discarding unparsable edit",
			zap.String("op", "editsession.CommitEdit"),
			zap.String("field", ref.String()),
		)
		return false, nil
	}
	if value == current.CurrentValue {
		s.state = Idle
		s.mu.Unlock()
		return false, nil
	}
	s.state = Committing
	s.mu.Unlock()

	err := s.apply(ctx, ref, plan.UpdateFieldValue(current, value, s.now()))

	s.mu.Lock()
	if s.state == Committing {
		s.state = Idle
	}
	s.mu.Unlock()
	return true, err
}

// CancelEdit discards the buffer and returns the session to Idle. The next
// CommitEdit is a no-op even if it arrives after the cancel.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return
	}
	s.state = Idle
	s.buffer = ""
	s.suppress = true
}

// ResetField restores a field to its brand default. Nothing is saved when
// the field already holds its default with default provenance.
func (s *Session) ResetField(ctx context.Context, ref plan.FieldRef) (bool, error) {
	current, ok := s.inputs().Field(ref)
	if !ok {
		return false, fmt.Errorf("%w: %s", plan.ErrUnknownField, ref)
	}
	if current.CurrentValue == current.DefaultValue && !current.IsCustom() {
		return false, nil
	}
	return true, s.apply(ctx, ref, plan.ResetFieldToDefault(current, s.now()))
}

// DirectUpdateField sets a value without a text edit, as a slider does.
func (s *Session) DirectUpdateField(ctx context.Context, ref plan.FieldRef, value float64) (bool, error) {
	current, ok := s.inputs().Field(ref)
	if !ok {
		return false, fmt.Errorf("%w: %s", plan.ErrUnknownField, ref)
	}
	if current.CurrentValue == value {
		return false, nil
	}
	return true, s.apply(ctx, ref, plan.UpdateFieldValue(current, value, s.now()))
}

func (s *Session) apply(ctx context.Context, ref plan.FieldRef, field plan.FinancialFieldValue) error {
	updated, err := s.inputs().WithField(ref, field)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.logger.Debug("saving field",
		zap.String("op", "editsession.apply"),
		zap.String("field", ref.String()),
		zap.Float64("value", field.CurrentValue),
		zap.String("source", string(field.Source)),
	)
	if err := s.save(ctx, updated); err != nil {
		return fmt.Errorf("saving %s: %w", ref, err)
	}
	return nil
}
