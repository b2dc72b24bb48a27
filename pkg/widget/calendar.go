package widget

import (
	"time"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

type calendar struct {
	*base
}

func newCalendar(status *model.FormFieldStatus, _ interfaces.RecordAPI) (Widget, error) {
	if err := expectType(status, types.WidgetCalendar,
		types.FieldTypeDate, types.FieldTypeTime, types.FieldTypeDateTime,
	); err != nil {
		return nil, err
	}

	layout := calendarLayout(status.Field.Type, status.Component.Config)
	return &calendar{base: newBase(status, func(v any) string {
		if tm, ok := v.(time.Time); ok {
			return tm.Format(layout)
		}
		return renderAny(v)
	})}, nil
}

// Input accepts time.Time values and strings in the configured layout
// besides the wire layouts.
func (c *calendar) Input(raw any) error {
	if s, ok := raw.(string); ok && s != "" {
		layout := calendarLayout(c.status.Field.Type, c.Config())
		if tm, err := time.Parse(layout, s); err == nil {
			raw = tm
		}
	}
	return c.base.Input(raw)
}

func calendarLayout(t types.FieldType, cfg model.WidgetConfig) string {
	if cfg.DateFormat != "" {
		return cfg.DateFormat
	}
	switch {
	case cfg.TimeOnly || t == types.FieldTypeTime:
		return model.TimeLayout
	case cfg.ShowTime || t == types.FieldTypeDateTime:
		return model.DateTimeLayout
	default:
		return model.DateLayout
	}
}
