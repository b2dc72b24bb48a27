package model

import (
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Validator checks a coerced control value. It returns nil when the value is acceptable.
type Validator func(field FieldSchema, value any) error

// Required rejects empty values
func Required(field FieldSchema, value any) error {
	if IsEmpty(value) {
		return goerr.Wrap(ErrMissingRequired, "value is required",
			goerr.V(FieldNameKey, field.Name))
	}
	return nil
}

// ControlState is a snapshot of a Control
type ControlState struct {
	Value  any
	Dirty  bool
	Errors []error
}

// Valid reports whether the snapshot carries no errors
func (s ControlState) Valid() bool { return len(s.Errors) == 0 }

// Control is the reactive value holder of one form field. All methods are
// safe for concurrent use; subscribers are called outside the lock.
type Control struct {
	field      FieldSchema
	validators []Validator

	mu        sync.RWMutex
	value     any
	dirty     bool
	coerceErr error
	errs      []error
	subs      map[int]func(ControlState)
	nextSubID int
}

// NewControl creates a control seeded with the field type default and runs
// the validators once so that the initial validity is known.
func NewControl(field FieldSchema, validators ...Validator) *Control {
	c := &Control{
		field:      field,
		validators: validators,
		value:      DefaultValue(field.Type),
		subs:       make(map[int]func(ControlState)),
	}
	c.errs = c.runValidators(c.value)
	return c
}

// Field returns the schema of the bound field
func (c *Control) Field() FieldSchema { return c.field }

// Value returns the current value
func (c *Control) Value() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// SetValue coerces raw for the field type, re-runs validators and notifies
// subscribers. A value that cannot be coerced leaves the previous value in
// place, is recorded as a control error and returned.
func (c *Control) SetValue(raw any) error {
	v, err := CoerceValue(c.field.Type, raw)
	if err != nil {
		err = goerr.Wrap(err, "failed to set control value", goerr.V(FieldNameKey, c.field.Name))
	}

	c.mu.Lock()
	c.dirty = true
	c.coerceErr = err
	if err == nil {
		c.value = v
	}
	c.errs = c.runValidators(c.value)
	state := c.stateLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
	return err
}

// Validate re-runs the validators against the current value and returns the errors
func (c *Control) Validate() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = c.runValidators(c.value)
	return c.errorsLocked()
}

// Errors returns the current errors
func (c *Control) Errors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorsLocked()
}

// Valid reports whether the control currently has no errors
func (c *Control) Valid() bool {
	return len(c.Errors()) == 0
}

// Dirty reports whether the value was changed since creation
func (c *Control) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// State returns a snapshot of the control
func (c *Control) State() ControlState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

// Subscribe registers fn to be called after each value change. The returned
// function removes the subscription.
func (c *Control) Subscribe(fn func(ControlState)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Control) runValidators(v any) []error {
	var errs []error
	for _, validate := range c.validators {
		if err := validate(c.field, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (c *Control) errorsLocked() []error {
	errs := slices.Clone(c.errs)
	if c.coerceErr != nil {
		errs = append([]error{c.coerceErr}, errs...)
	}
	return errs
}

func (c *Control) stateLocked() ControlState {
	return ControlState{
		Value:  c.value,
		Dirty:  c.dirty,
		Errors: c.errorsLocked(),
	}
}

func (c *Control) subscribersLocked() []func(ControlState) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(ControlState), len(ids))
	for i, id := range ids {
		subs[i] = c.subs[id]
	}
	return subs
}
