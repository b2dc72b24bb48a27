package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/service/messages"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// Presenter is what a view exposes to the orchestration: user
// notifications and navigation to a record
type Presenter interface {
	interfaces.Notifier
	interfaces.Navigator
}

// EntityRecordUseCase drives the "new record" and "list records" views
type EntityRecordUseCase struct {
	api      interfaces.RecordAPI
	schema   *SchemaUseCase
	form     *FormUseCase
	messages interfaces.Messages
	notifier interfaces.Notifier
}

func NewEntityRecordUseCase(api interfaces.RecordAPI, schema *SchemaUseCase, form *FormUseCase, msgs interfaces.Messages, notifier interfaces.Notifier) *EntityRecordUseCase {
	return &EntityRecordUseCase{
		api:      api,
		schema:   schema,
		form:     form,
		messages: msgs,
		notifier: notifier,
	}
}

// NewEntityRecordView is an open "new record" form
type NewEntityRecordView struct {
	Title string
	Form  *model.FormStatus

	uc        *EntityRecordUseCase
	presenter Presenter
}

// OpenNewEntityRecord builds the form of entityName. On failure the
// presenter receives one error notification and the error is returned.
func (uc *EntityRecordUseCase) OpenNewEntityRecord(ctx context.Context, entityName string, presenter Presenter) (*NewEntityRecordView, error) {
	form, err := uc.form.BuildForm(ctx, entityName)
	if err != nil {
		uc.notifyError(ctx, presenter, messages.EntityRecordErrorLoad, err)
		return nil, err
	}

	return &NewEntityRecordView{
		Title:     uc.messages.Get(messages.EntityRecordNew) + " " + form.Schema.DisplayName(),
		Form:      form,
		uc:        uc,
		presenter: presenter,
	}, nil
}

// Submit submits the form. On success the presenter is notified once and
// navigated to the created record (keyed by its logical key, else its id).
// On failure it receives one error notification and the form keeps its
// values. A submit rejected because another one is in flight is returned
// without notification.
func (v *NewEntityRecordView) Submit(ctx context.Context) (*model.EntityRecord, error) {
	rec, err := v.Form.Submit(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrSubmitInFlight) {
			v.uc.notifyError(ctx, v.presenter, messages.EntityRecordErrorNew, err)
		}
		return nil, err
	}

	msg := v.uc.messages.Get(messages.EntityRecordCreated)
	v.presenter.Success(ctx, msg)
	if v.uc.notifier != nil {
		v.uc.notifier.Success(ctx, msg)
	}

	key, ok := rec.Key(v.Form.Schema)
	if !ok {
		logging.From(ctx).Warn("created record has neither logical key nor id",
			"entity", v.Form.Entity())
		return rec, nil
	}
	v.presenter.NavigateToRecord(ctx, v.Form.Entity(), key)
	return rec, nil
}

// Close releases the form
func (v *NewEntityRecordView) Close() {
	v.Form.Close()
}

func (uc *EntityRecordUseCase) notifyError(ctx context.Context, presenter Presenter, key string, err error) {
	msg := uc.messages.Get(key)
	detail := model.ErrorDetail(err)
	presenter.Error(ctx, msg, detail)
	if uc.notifier != nil {
		uc.notifier.Error(ctx, msg, detail)
	}
}

// RecordList is the content of a list view
type RecordList struct {
	Schema  *model.EntitySchema
	Records []*model.EntityRecord
}

// ListRecords resolves the schema of entityName and fetches its records matching filter
func (uc *EntityRecordUseCase) ListRecords(ctx context.Context, entityName, filter string) (*RecordList, error) {
	schema, err := uc.schema.ResolveSchema(ctx, entityName)
	if err != nil {
		return nil, err
	}

	rec, err := uc.api.GetEntityRecords(ctx, schema.Name, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records",
			goerr.V(model.EntityNameKey, schema.Name),
			goerr.V(model.FilterKey, filter))
	}
	records, err := rec.Records()
	if err != nil {
		return nil, goerr.Wrap(err, "record list has unexpected shape", goerr.V(model.EntityNameKey, schema.Name))
	}

	return &RecordList{Schema: schema, Records: records}, nil
}

// GetRecord resolves the schema of entityName and fetches one record by key
func (uc *EntityRecordUseCase) GetRecord(ctx context.Context, entityName, key string) (*model.EntitySchema, *model.EntityRecord, error) {
	schema, err := uc.schema.ResolveSchema(ctx, entityName)
	if err != nil {
		return nil, nil, err
	}
	rec, err := uc.api.GetEntityRecord(ctx, schema.Name, key)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to get record",
			goerr.V(model.EntityNameKey, schema.Name),
			goerr.V(model.RecordKeyKey, key))
	}
	return schema, rec, nil
}
