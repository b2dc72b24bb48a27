package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Filter is a parsed `attribute==value` search expression. The zero value matches everything.
type Filter struct {
	Attribute string
	Value     string
}

// ParseFilter parses the record API search syntax. An empty expression yields
// the match-all filter.
func ParseFilter(expr string) (Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return Filter{}, nil
	}

	attr, value, ok := strings.Cut(expr, "==")
	attr = strings.TrimSpace(attr)
	if !ok || attr == "" {
		return Filter{}, goerr.Wrap(ErrInvalidFilter, "filter must be attribute==value",
			goerr.V(FilterKey, expr))
	}
	// the value is compared verbatim, surrounding spaces included
	return Filter{Attribute: attr, Value: value}, nil
}

// IsZero reports whether the filter matches everything
func (f Filter) IsZero() bool { return f.Attribute == "" }

// String renders the filter back into search syntax
func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return f.Attribute + "==" + f.Value
}

// Match reports whether payload satisfies the filter. Values are compared in
// their key representation, so references match by their key or name.
func (f Filter) Match(payload map[string]any) bool {
	if f.IsZero() {
		return true
	}
	v, ok := keyString(payload[f.Attribute])
	if !ok {
		return f.Value == ""
	}
	return v == f.Value
}
