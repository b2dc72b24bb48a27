package widget

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// Host instantiates widgets for form fields by their bound widget kind
type Host struct {
	api       interfaces.RecordAPI
	factories map[types.WidgetKind]Factory
}

type HostOption func(*Host)

// WithFactory replaces the factory of one widget kind
func WithFactory(kind types.WidgetKind, f Factory) HostOption {
	return func(h *Host) {
		h.factories[kind] = f
	}
}

// NewHost builds a host whose factory table covers every widget kind. The
// record API backs ref-picker candidates and may be nil when no ref-picker
// is ever mounted.
func NewHost(api interfaces.RecordAPI, opts ...HostOption) (*Host, error) {
	h := &Host{
		api:       api,
		factories: DefaultFactories(),
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, kind := range types.AllWidgetKinds() {
		if h.factories[kind] == nil {
			return nil, goerr.Wrap(model.ErrConfiguration, "no factory for widget kind",
				goerr.V(model.WidgetKindKey, kind))
		}
	}
	return h, nil
}

// Mount creates the widget bound to status and connects it to the field control
func (h *Host) Mount(status *model.FormFieldStatus) (Widget, error) {
	factory, ok := h.factories[status.Component.Widget]
	if !ok {
		return nil, goerr.Wrap(model.ErrConfiguration, "unknown widget kind",
			goerr.V(model.WidgetKindKey, status.Component.Widget),
			goerr.V(model.FieldNameKey, status.Field.Name))
	}
	w, err := factory(status, h.api)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to mount widget",
			goerr.V(model.FieldNameKey, status.Field.Name))
	}
	return w, nil
}

// MountForm mounts one widget per form field in display order. On failure
// the widgets mounted so far are closed.
func (h *Host) MountForm(form *model.FormStatus) ([]Widget, error) {
	widgets := make([]Widget, 0, len(form.Fields))
	for _, field := range form.Fields {
		w, err := h.Mount(field)
		if err != nil {
			CloseAll(widgets)
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, nil
}

// CloseAll detaches every widget from its control
func CloseAll(widgets []Widget) {
	for _, w := range widgets {
		w.Close()
	}
}
