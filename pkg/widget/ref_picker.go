package widget

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

type refPicker struct {
	*base
	api interfaces.RecordAPI
	ref types.EntityName
}

var _ Picker = &refPicker{}

func newRefPicker(status *model.FormFieldStatus, api interfaces.RecordAPI) (Widget, error) {
	if err := expectType(status, types.WidgetRefPicker, types.FieldTypeEntityRef); err != nil {
		return nil, err
	}
	ref := types.NewEntityName(status.Component.Config.RefEntity)
	if err := ref.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "ref-picker needs refEntity",
			goerr.V(model.FieldNameKey, status.Field.Name))
	}
	if api == nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "ref-picker needs a record API",
			goerr.V(model.FieldNameKey, status.Field.Name))
	}

	return &refPicker{
		base: newBase(status, renderAny),
		api:  api,
		ref:  ref,
	}, nil
}

// Candidates lists the records of the referenced entity. Each candidate is
// keyed by the record's logical key and labelled by its description fields.
func (p *refPicker) Candidates(ctx context.Context) ([]Candidate, error) {
	var fieldRecs, dataRecs *model.EntityRecord
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		fieldRecs, err = p.api.GetEntityRecords(egCtx, types.EntityOfFields, "entity=="+p.ref.String())
		return err
	})
	eg.Go(func() error {
		var err error
		dataRecs, err = p.api.GetEntityRecords(egCtx, p.ref, "")
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to load ref-picker candidates", goerr.V(model.EntityNameKey, p.ref))
	}

	fieldList, err := fieldRecs.Records()
	if err != nil {
		return nil, goerr.Wrap(err, "field list has unexpected shape", goerr.V(model.EntityNameKey, p.ref))
	}
	fields := make([]model.FieldSchema, 0, len(fieldList))
	for _, r := range fieldList {
		f, err := model.ParseFieldSchema(r)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid field of referenced entity", goerr.V(model.EntityNameKey, p.ref))
		}
		fields = append(fields, f)
	}
	schema, err := model.NewEntitySchema(p.ref, nil, fields)
	if err != nil {
		return nil, err
	}

	records, err := dataRecs.Records()
	if err != nil {
		return nil, goerr.Wrap(err, "record list has unexpected shape", goerr.V(model.EntityNameKey, p.ref))
	}

	candidates := make([]Candidate, 0, len(records))
	for _, rec := range records {
		key, ok := rec.Key(schema)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Key: key, Label: rec.Label(schema)})
	}
	return candidates, nil
}
