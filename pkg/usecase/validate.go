package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

// ValidationIssue is one stored value that does not fit its field declaration
type ValidationIssue struct {
	Entity    types.EntityName
	RecordKey string
	Field     string
	Message   string
	Expected  string
	Actual    string
}

// ValidationResult holds the issues found by ValidateRecords
type ValidationResult struct {
	Checked int
	Issues  []ValidationIssue
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
}

// ValidateRecords checks that the stored records of the given entities are
// consistent with their current schema: every declared field value coerces
// to its type and logical key fields are set. With no entity names, every
// declared entity is checked. It does NOT modify any data.
func (uc *EntityRecordUseCase) ValidateRecords(ctx context.Context, entityNames ...string) (*ValidationResult, error) {
	if len(entityNames) == 0 {
		names, err := uc.schema.DeclaredEntities(ctx)
		if err != nil {
			return nil, err
		}
		entityNames = names
	}

	result := &ValidationResult{}
	for _, name := range entityNames {
		list, err := uc.ListRecords(ctx, name, "")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load records for validation", goerr.V(model.EntityNameKey, name))
		}

		for _, rec := range list.Records {
			result.Checked++
			key, _ := rec.Key(list.Schema)

			payload, err := rec.Payload()
			if err != nil {
				result.AddIssue(ValidationIssue{
					Entity:    list.Schema.Name,
					RecordKey: key,
					Message:   "record payload is not an object",
					Expected:  "object",
					Actual:    fmt.Sprintf("%T", rec.Data),
				})
				continue
			}

			for _, f := range list.Schema.Fields {
				v, exists := payload[f.Name]
				if f.IsLogicalKey && (!exists || model.IsEmpty(v)) {
					result.AddIssue(ValidationIssue{
						Entity:    list.Schema.Name,
						RecordKey: key,
						Field:     f.Name,
						Message:   "logical key is not set",
						Expected:  f.Type.String(),
						Actual:    "<empty>",
					})
					continue
				}
				if !exists {
					continue
				}
				if _, err := model.CoerceValue(f.Type, v); err != nil {
					result.AddIssue(ValidationIssue{
						Entity:    list.Schema.Name,
						RecordKey: key,
						Field:     f.Name,
						Message:   "value does not match field type",
						Expected:  f.Type.String(),
						Actual:    fmt.Sprint(v),
					})
				}
			}
		}
	}

	return result, nil
}
