package model_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

func newCustomerForm(t *testing.T, submit model.SubmitFunc) *model.FormStatus {
	t.Helper()
	schema, err := model.NewEntitySchema("CUSTOMER", nil, customerFields())
	gt.NoError(t, err).Required()
	reg, err := model.NewComponentRegistry(model.DefaultComponentBindings())
	gt.NoError(t, err).Required()

	var fields []*model.FormFieldStatus
	for _, f := range schema.DisplayFields() {
		meta, err := reg.Resolve(f)
		gt.NoError(t, err).Required()
		var validators []model.Validator
		if f.IsLogicalKey {
			validators = append(validators, model.Required)
		}
		fields = append(fields, &model.FormFieldStatus{
			Field:     f,
			Control:   model.NewControl(f, validators...),
			Component: meta,
		})
	}
	return model.NewFormStatus(schema, fields, submit)
}

func TestFormStatus_Submit(t *testing.T) {
	var gotEntity types.EntityName
	var gotPayload map[string]any
	calls := 0
	form := newCustomerForm(t, func(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
		calls++
		gotEntity = entity
		gotPayload = payload
		return model.NewEntityRecord(payload), nil
	})

	field, ok := form.Field("name")
	gt.Bool(t, ok).True()
	gt.NoError(t, field.Control.SetValue("Ann"))
	field, _ = form.Field("age")
	gt.NoError(t, field.Control.SetValue("30"))

	rec, err := form.Submit(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, rec).NotNil()
	gt.Number(t, calls).Equal(1)
	gt.Value(t, gotEntity).Equal(types.EntityName("CUSTOMER"))
	gt.Value(t, gotPayload).Equal(map[string]any{
		"name": "Ann",
		"age":  int64(30),
		"vip":  false,
	})
}

func TestFormStatus_SubmitInvalid(t *testing.T) {
	calls := 0
	form := newCustomerForm(t, func(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
		calls++
		return nil, nil
	})

	_, err := form.Submit(context.Background())
	gt.Error(t, err).Is(model.ErrInvalidForm)
	gt.Error(t, err).Is(model.ErrMissingRequired)
	gt.Number(t, calls).Equal(0)
}

func TestFormStatus_SubmitFailureKeepsValues(t *testing.T) {
	apiErr := model.NewConflictError("CUSTOMER", "Ann")
	form := newCustomerForm(t, func(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
		return nil, apiErr
	})
	field, _ := form.Field("name")
	gt.NoError(t, field.Control.SetValue("Ann"))

	_, err := form.Submit(context.Background())
	gt.Error(t, err).Is(model.ErrSubmit)
	gt.Error(t, err).Is(model.ErrRecordConflict)

	var got *model.APIError
	gt.Bool(t, errors.As(err, &got)).True()
	gt.Number(t, got.Status).Equal(409)

	gt.Value(t, field.Control.Value()).Equal(any("Ann"))
}

func TestFormStatus_SubmitInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var enterOnce sync.Once
	form := newCustomerForm(t, func(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
		enterOnce.Do(func() { close(entered) })
		<-release
		return model.NewEntityRecord(payload), nil
	})
	field, _ := form.Field("name")
	gt.NoError(t, field.Control.SetValue("Ann"))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = form.Submit(context.Background())
	}()

	<-entered
	_, err := form.Submit(context.Background())
	gt.Error(t, err).Is(model.ErrSubmitInFlight)

	close(release)
	wg.Wait()
	gt.NoError(t, firstErr)

	// the guard is released after completion
	_, err = form.Submit(context.Background())
	gt.NoError(t, err)
}

func TestFormStatus_OnChange(t *testing.T) {
	form := newCustomerForm(t, nil)
	gt.Bool(t, form.Valid()).False()

	var seen []bool
	unsubscribe := form.OnChange(func(valid bool) { seen = append(seen, valid) })
	defer unsubscribe()

	field, _ := form.Field("name")
	gt.NoError(t, field.Control.SetValue("Ann"))
	gt.Bool(t, form.Valid()).True()
	gt.Value(t, seen).Equal([]bool{true})

	form.Close()
	gt.NoError(t, field.Control.SetValue(""))
	gt.Value(t, seen).Equal([]bool{true})
}
