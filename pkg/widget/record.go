package widget

import (
	"github.com/goccy/go-json"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

type record struct {
	*base
}

func newRecord(status *model.FormFieldStatus, _ interfaces.RecordAPI) (Widget, error) {
	if err := expectType(status, types.WidgetRecord, types.FieldTypeRecord); err != nil {
		return nil, err
	}
	return &record{base: newBase(status, renderRecord)}, nil
}

func renderRecord(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return renderAny(v)
	}
	return string(data)
}
