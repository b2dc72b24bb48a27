package widget

import (
	"math"
	"strconv"
	"strings"

	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

type input struct {
	*base
}

func newInput(status *model.FormFieldStatus, _ interfaces.RecordAPI) (Widget, error) {
	if err := expectType(status, types.WidgetInput,
		types.FieldTypeText, types.FieldTypeNumber, types.FieldTypeLong, types.FieldTypeDouble,
		types.FieldTypeBool, types.FieldTypeEntityRef,
	); err != nil {
		return nil, err
	}

	step := status.Component.Config.Step
	return &input{base: newBase(status, func(v any) string { return formatNumber(v, step) })}, nil
}

// formatNumber renders numeric values with as many decimals as step has
func formatNumber(v any, step float64) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', stepDecimals(step), 64)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return renderAny(v)
	}
}

func stepDecimals(step float64) int {
	if step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return -1
	}
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if _, frac, ok := strings.Cut(s, "."); ok {
		return len(frac)
	}
	return 0
}
