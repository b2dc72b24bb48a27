package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/service/recordapi"
	"github.com/secmon-lab/metaform/pkg/utils/errutil"
)

// The record API surface serves the backing store in the wire format the
// recordapi client speaks. Requests carrying the envelope header get and
// send {"data": ...}; others get and send the bare payload.

func wantsEnvelope(r *http.Request) bool {
	return r.Header.Get(recordapi.EnvelopeHeader) == recordapi.EnvelopeValue
}

func pathEntity(r *http.Request) (types.EntityName, error) {
	entity := types.NewEntityName(chi.URLParam(r, "entity"))
	if err := entity.Validate(); err != nil {
		return "", model.NewBadRequestError("INVALID_ENTITY", err.Error())
	}
	return entity, nil
}

func writeRecord(w http.ResponseWriter, r *http.Request, status int, rec *model.EntityRecord) {
	if wantsEnvelope(r) {
		writeJSON(w, r, status, rec)
		return
	}
	writeJSON(w, r, status, rec.Data)
}

func (s *Server) apiList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity, err := pathEntity(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	rec, err := s.recordAPI.GetEntityRecords(ctx, entity, r.URL.Query().Get(recordapi.SearchParam))
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	writeRecord(w, r, http.StatusOK, rec)
}

func (s *Server) apiGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity, err := pathEntity(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || key == "" {
		errutil.HandleHTTP(ctx, w, model.NewBadRequestError("INVALID_KEY", "record key is malformed"))
		return
	}

	rec, err := s.recordAPI.GetEntityRecord(ctx, entity, key)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	writeRecord(w, r, http.StatusOK, rec)
}

const invalidRecordBody = "request body must be a JSON object"

func (s *Server) apiCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity, err := pathEntity(r)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}

	var payload map[string]any
	if wantsEnvelope(r) {
		var body struct {
			Data map[string]any `json:"data"`
		}
		err = decodeBody(w, r, &body, invalidRecordBody)
		payload = body.Data
	} else {
		err = decodeBody(w, r, &payload, invalidRecordBody)
	}
	if err == nil && payload == nil {
		err = model.NewBadRequestError("INVALID_BODY", invalidRecordBody)
	}
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	payload = model.NormalizeNumbers(payload)

	rec, err := s.recordAPI.CreateEntityRecord(ctx, entity, payload)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err)
		return
	}
	writeRecord(w, r, http.StatusCreated, rec)
}
