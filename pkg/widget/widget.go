package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Widget edits the value of one form field. It reads from and writes to the
// control of the field; it never holds a value of its own.
type Widget interface {
	Kind() types.WidgetKind
	Field() model.FieldSchema
	Config() model.WidgetConfig
	// Render returns the current value as display text
	Render() string
	// Input feeds a value-change event into the control
	Input(raw any) error
	Valid() bool
	Errors() []error
	// OnChange registers fn to receive the rendered value after every change
	OnChange(fn func(rendered string))
	Close()
}

// Factory creates the widget of one kind for a form field
type Factory func(status *model.FormFieldStatus, api interfaces.RecordAPI) (Widget, error)

// DefaultFactories returns the built-in widget for every widget kind
func DefaultFactories() map[types.WidgetKind]Factory {
	return map[types.WidgetKind]Factory{
		types.WidgetInput:     newInput,
		types.WidgetToggle:    newToggle,
		types.WidgetCalendar:  newCalendar,
		types.WidgetRefPicker: newRefPicker,
		types.WidgetRecord:    newRecord,
	}
}

// base is the control binding shared by all widgets
type base struct {
	status *model.FormFieldStatus
	render func(v any) string

	mu        sync.Mutex
	listeners []func(string)
	unsub     func()
}

func newBase(status *model.FormFieldStatus, render func(v any) string) *base {
	b := &base{status: status, render: render}
	b.unsub = status.Control.Subscribe(func(s model.ControlState) {
		b.mu.Lock()
		listeners := append([]func(string){}, b.listeners...)
		b.mu.Unlock()

		text := b.render(s.Value)
		for _, fn := range listeners {
			fn(text)
		}
	})
	return b
}

func (b *base) Kind() types.WidgetKind     { return b.status.Component.Widget }
func (b *base) Field() model.FieldSchema   { return b.status.Field }
func (b *base) Config() model.WidgetConfig { return b.status.Component.Config }
func (b *base) Render() string             { return b.render(b.status.Control.Value()) }
func (b *base) Input(raw any) error        { return b.status.Control.SetValue(raw) }
func (b *base) Valid() bool                { return b.status.Control.Valid() }
func (b *base) Errors() []error            { return b.status.Control.Errors() }

func (b *base) OnChange(fn func(rendered string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *base) Close() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.listeners = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func renderAny(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func expectType(status *model.FormFieldStatus, kind types.WidgetKind, allowed ...types.FieldType) error {
	for _, t := range allowed {
		if status.Field.Type == t {
			return nil
		}
	}
	return goerr.Wrap(model.ErrConfiguration, "widget cannot edit field type",
		goerr.V(model.WidgetKindKey, kind),
		goerr.V(model.FieldNameKey, status.Field.Name),
		goerr.V(model.FieldTypeKey, status.Field.Type))
}

// Candidate is one selectable record of a ref-picker
type Candidate struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Picker is implemented by widgets that offer a list of selectable values
type Picker interface {
	Widget
	Candidates(ctx context.Context) ([]Candidate, error)
}
