package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/service/notify"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/secmon-lab/metaform/pkg/utils/errutil"
	"github.com/secmon-lab/metaform/pkg/widget"
)

type fieldResponse struct {
	Name         string             `json:"name"`
	Type         types.FieldType    `json:"type"`
	IsLogicalKey bool               `json:"isLogicalKey"`
	Widget       types.WidgetKind   `json:"widget"`
	Config       model.WidgetConfig `json:"config"`
	Value        string             `json:"value"`
	Valid        bool               `json:"valid"`
	Errors       []string           `json:"errors,omitempty"`
}

type formResponse struct {
	Entity types.EntityName `json:"entity"`
	Title  string           `json:"title"`
	Valid  bool             `json:"valid"`
	Fields []fieldResponse  `json:"fields"`
}

type submitResponse struct {
	Data          any                   `json:"data"`
	Notifications []notify.Notification `json:"notifications"`
	Navigation    *notify.Navigation    `json:"navigation,omitempty"`
}

type recordItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Data  any    `json:"data"`
}

type recordListResponse struct {
	Entity  types.EntityName `json:"entity"`
	Title   string           `json:"title"`
	Records []recordItem     `json:"records"`
}

// formSession is an open "new record" view with its mounted widgets
type formSession struct {
	view    *usecase.NewEntityRecordView
	widgets []widget.Widget
}

func (s *Server) openForm(ctx context.Context, entity string, presenter usecase.Presenter) (*formSession, error) {
	view, err := s.uc.EntityRecord.OpenNewEntityRecord(ctx, entity, presenter)
	if err != nil {
		return nil, err
	}
	widgets, err := s.host.MountForm(view.Form)
	if err != nil {
		view.Close()
		return nil, err
	}
	return &formSession{view: view, widgets: widgets}, nil
}

func (fs *formSession) Close() {
	widget.CloseAll(fs.widgets)
	fs.view.Close()
}

func (fs *formSession) widget(name string) (widget.Widget, bool) {
	field, ok := fs.view.Form.Field(name)
	if !ok {
		return nil, false
	}
	for _, w := range fs.widgets {
		if w.Field().Name == field.Field.Name {
			return w, true
		}
	}
	return nil, false
}

func (fs *formSession) response() formResponse {
	resp := formResponse{
		Entity: fs.view.Form.Entity(),
		Title:  fs.view.Title,
		Valid:  fs.view.Form.Valid(),
		Fields: make([]fieldResponse, 0, len(fs.widgets)),
	}
	for _, w := range fs.widgets {
		resp.Fields = append(resp.Fields, newFieldResponse(w))
	}
	return resp
}

func newFieldResponse(w widget.Widget) fieldResponse {
	f := w.Field()
	resp := fieldResponse{
		Name:         f.Name,
		Type:         f.Type,
		IsLogicalKey: f.IsLogicalKey,
		Widget:       w.Kind(),
		Config:       w.Config(),
		Value:        w.Render(),
		Valid:        w.Valid(),
	}
	for _, err := range w.Errors() {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.openForm(ctx, chi.URLParam(r, "entity"), &notify.Recorder{})
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	defer session.Close()

	writeJSON(w, r, http.StatusOK, session.response())
}

// createRecord feeds the posted values through the form widgets and submits
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Data map[string]any `json:"data"`
	}
	if err := decodeBody(w, r, &req, "request body must be {\"data\": {...}}"); err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	recorder := &notify.Recorder{}
	session, err := s.openForm(ctx, chi.URLParam(r, "entity"), recorder)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	defer session.Close()

	for name, value := range req.Data {
		wg, ok := session.widget(name)
		if !ok {
			errutil.HandleHTTP(ctx, w, model.NewBadRequestError("UNKNOWN_FIELD",
				"field "+name+" is not declared on "+session.view.Form.Entity().String()))
			return
		}
		// coercion errors stay on the control and fail the submit below
		_ = wg.Input(value)
	}

	rec, err := session.view.Submit(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	resp := submitResponse{Data: rec.Data, Notifications: recorder.Notifications()}
	if navs := recorder.Navigations(); len(navs) > 0 {
		resp.Navigation = &navs[0]
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.uc.EntityRecord.ListRecords(ctx, chi.URLParam(r, "entity"), r.URL.Query().Get("search"))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	resp := recordListResponse{
		Entity:  list.Schema.Name,
		Title:   list.Schema.DisplayName(),
		Records: make([]recordItem, 0, len(list.Records)),
	}
	for _, rec := range list.Records {
		key, _ := rec.Key(list.Schema)
		resp.Records = append(resp.Records, recordItem{
			Key:   key,
			Label: rec.Label(list.Schema),
			Data:  rec.Data,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || key == "" {
		errutil.HandleHTTP(ctx, w, model.NewBadRequestError("INVALID_KEY", "record key is malformed"))
		return
	}

	schema, rec, err := s.uc.EntityRecord.GetRecord(ctx, chi.URLParam(r, "entity"), key)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, recordItem{
		Key:   key,
		Label: rec.Label(schema),
		Data:  rec.Data,
	})
}
