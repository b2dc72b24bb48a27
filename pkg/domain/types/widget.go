package types

// WidgetKind identifies an input capability able to edit a field
type WidgetKind string

const (
	WidgetInput     WidgetKind = "input"
	WidgetToggle    WidgetKind = "toggle"
	WidgetCalendar  WidgetKind = "calendar"
	WidgetRefPicker WidgetKind = "ref-picker"
	WidgetRecord    WidgetKind = "record"
)

// AllWidgetKinds returns all known widget kinds
func AllWidgetKinds() []WidgetKind {
	return []WidgetKind{
		WidgetInput,
		WidgetToggle,
		WidgetCalendar,
		WidgetRefPicker,
		WidgetRecord,
	}
}

// IsValid checks if the widget kind is known
func (k WidgetKind) IsValid() bool {
	switch k {
	case WidgetInput, WidgetToggle, WidgetCalendar, WidgetRefPicker, WidgetRecord:
		return true
	default:
		return false
	}
}

func (k WidgetKind) String() string {
	return string(k)
}
