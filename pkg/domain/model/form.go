package model

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// WidgetConfig is the presentation configuration handed to a widget
type WidgetConfig struct {
	InputType  string  `json:"inputType,omitempty" toml:"input_type"`
	Step       float64 `json:"step,omitempty" toml:"step"`
	RefEntity  string  `json:"refEntity,omitempty" toml:"ref_entity"`
	ShowTime   bool    `json:"showTime,omitempty" toml:"show_time"`
	TimeOnly   bool    `json:"timeOnly,omitempty" toml:"time_only"`
	DateFormat string  `json:"dateFormat,omitempty" toml:"date_format"`
}

// ComponentMeta names the widget rendering a field and its configuration
type ComponentMeta struct {
	Widget types.WidgetKind `json:"widget"`
	Config WidgetConfig     `json:"config"`
}

// FormFieldStatus binds one field to its control and widget
type FormFieldStatus struct {
	Field     FieldSchema
	Control   *Control
	Component ComponentMeta
}

// SubmitFunc creates a record from a form payload
type SubmitFunc func(ctx context.Context, entity types.EntityName, payload map[string]any) (*EntityRecord, error)

// FormStatus is the complete state of one dynamic form. Fields are in
// display order. The form owns its controls; they are not shared.
type FormStatus struct {
	Schema *EntitySchema
	Fields []*FormFieldStatus

	submit   SubmitFunc
	inFlight atomic.Bool

	mu        sync.Mutex
	valid     bool
	subs      map[int]func(valid bool)
	nextSubID int
	unsubs    []func()
}

// NewFormStatus assembles a form and starts tracking the aggregate validity of its controls
func NewFormStatus(schema *EntitySchema, fields []*FormFieldStatus, submit SubmitFunc) *FormStatus {
	f := &FormStatus{
		Schema: schema,
		Fields: fields,
		submit: submit,
		subs:   make(map[int]func(valid bool)),
	}
	f.valid = f.computeValid()

	for _, field := range fields {
		unsub := field.Control.Subscribe(func(ControlState) { f.recompute() })
		f.unsubs = append(f.unsubs, unsub)
	}
	return f
}

// Entity returns the name of the entity the form creates records for
func (f *FormStatus) Entity() types.EntityName { return f.Schema.Name }

// Field looks up a field status by field name (case-insensitive)
func (f *FormStatus) Field(name string) (*FormFieldStatus, bool) {
	schema, ok := f.Schema.Field(name)
	if !ok {
		return nil, false
	}
	for _, field := range f.Fields {
		if field.Field.Name == schema.Name {
			return field, true
		}
	}
	return nil, false
}

// Values returns the current control values keyed by field name
func (f *FormStatus) Values() map[string]any {
	values := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		values[field.Field.Name] = field.Control.Value()
	}
	return values
}

// Payload returns the current values in wire representation
func (f *FormStatus) Payload() map[string]any {
	payload := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		payload[field.Field.Name] = EncodeValue(field.Field.Type, field.Control.Value())
	}
	return payload
}

// Validate runs every control's validators. It returns ErrInvalidForm joined
// with the individual field errors when any control is invalid.
func (f *FormStatus) Validate() error {
	var errs []error
	for _, field := range f.Fields {
		field.Control.Validate()
		errs = append(errs, field.Control.Errors()...)
	}
	f.recompute()

	if len(errs) > 0 {
		return errors.Join(append([]error{
			goerr.Wrap(ErrInvalidForm, "form validation failed",
				goerr.V(EntityNameKey, f.Schema.Name),
				goerr.V("error_count", len(errs))),
		}, errs...)...)
	}
	return nil
}

// Valid returns the last computed aggregate validity
func (f *FormStatus) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid
}

// OnChange registers fn to be called with the aggregate validity after any
// control changes. The returned function removes the subscription.
func (f *FormStatus) OnChange(fn func(valid bool)) func() {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Submit validates the form and creates a record from the current values.
// Only one submit may run at a time; a concurrent call fails with
// ErrSubmitInFlight. API failures are classified with ErrSubmit. Control
// values are kept in every case.
func (f *FormStatus) Submit(ctx context.Context) (*EntityRecord, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, goerr.Wrap(ErrSubmitInFlight, "form is already being submitted",
			goerr.V(EntityNameKey, f.Schema.Name))
	}
	defer f.inFlight.Store(false)

	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.submit == nil {
		return nil, goerr.Wrap(ErrConfiguration, "form has no submit function",
			goerr.V(EntityNameKey, f.Schema.Name))
	}

	record, err := f.submit(ctx, f.Schema.Name, f.Payload())
	if err != nil {
		return nil, errors.Join(ErrSubmit, goerr.Wrap(err, "failed to create entity record",
			goerr.V(EntityNameKey, f.Schema.Name)))
	}
	return record, nil
}

// Close detaches the form from its controls
func (f *FormStatus) Close() {
	f.mu.Lock()
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (f *FormStatus) computeValid() bool {
	for _, field := range f.Fields {
		if !field.Control.Valid() {
			return false
		}
	}
	return true
}

func (f *FormStatus) recompute() {
	valid := f.computeValid()

	f.mu.Lock()
	f.valid = valid
	subs := make([]func(bool), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(valid)
	}
}
