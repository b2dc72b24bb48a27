package widget

import (
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

type toggle struct {
	*base
}

func newToggle(status *model.FormFieldStatus, _ interfaces.RecordAPI) (Widget, error) {
	if err := expectType(status, types.WidgetToggle, types.FieldTypeBool); err != nil {
		return nil, err
	}
	return &toggle{base: newBase(status, renderToggle)}, nil
}

func renderToggle(v any) string {
	if on, _ := v.(bool); on {
		return "on"
	}
	return "off"
}
