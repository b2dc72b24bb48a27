package http_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/metaform/pkg/controller/http"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/repository/memory"
	"github.com/secmon-lab/metaform/pkg/service/recordapi"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/secmon-lab/metaform/pkg/widget"
)

func declareCustomer(t *testing.T, repo *memory.Memory) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateEntityRecord(ctx, types.EntityOfEntities, map[string]any{"name": "CUSTOMER", "displayName": "Customer"})
	gt.NoError(t, err).Required()
	for _, f := range []model.FieldSchema{
		{Name: "name", Type: types.FieldTypeText, IsLogicalKey: true, GUISettings: model.GUISettings{SortKey: 1, UseAsDesc: true}},
		{Name: "active", Type: types.FieldTypeBool, GUISettings: model.GUISettings{SortKey: 2}},
		{Name: "since", Type: types.FieldTypeDate, GUISettings: model.GUISettings{SortKey: 3}},
	} {
		f.Entity = "CUSTOMER"
		_, err := repo.CreateEntityRecord(ctx, types.EntityOfFields, f.Payload())
		gt.NoError(t, err).Required()
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Memory) {
	t.Helper()
	repo := memory.New()
	declareCustomer(t, repo)

	uc, err := usecase.New(repo)
	gt.NoError(t, err).Required()
	host, err := widget.NewHost(repo)
	gt.NoError(t, err).Required()

	srv, err := server.New(uc, host, server.WithRecordAPI(repo))
	gt.NoError(t, err).Required()

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, repo
}

func doJSON(t *testing.T, method, url string, body any, header map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	gt.NoError(t, err).Required()
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	if len(raw) > 0 {
		gt.NoError(t, json.Unmarshal(raw, &out)).Required()
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	status, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil, nil)
	gt.Number(t, status).Equal(http.StatusOK)
	gt.Value(t, body["status"]).Equal(any("ok"))
}

func TestGetForm(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("fields in display order with widgets", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/api/entities/customer/form", nil, nil)
		gt.Number(t, status).Equal(http.StatusOK)
		gt.Value(t, body["entity"]).Equal(any("CUSTOMER"))
		gt.Value(t, body["title"]).Equal(any("New record Customer"))
		gt.Value(t, body["valid"]).Equal(any(false))

		fields := body["fields"].([]any)
		gt.Array(t, fields).Length(3).Required()
		names := []string{}
		widgets := []string{}
		for _, f := range fields {
			m := f.(map[string]any)
			names = append(names, m["name"].(string))
			widgets = append(widgets, m["widget"].(string))
		}
		gt.Value(t, names).Equal([]string{"name", "active", "since"})
		gt.Value(t, widgets).Equal([]string{"input", "toggle", "calendar"})
	})

	t.Run("unknown entity", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/api/entities/NOPE/form", nil, nil)
		gt.Number(t, status).Equal(http.StatusNotFound)
		gt.Value(t, body["errorcode"]).Equal(any("RECORD_NOT_FOUND"))
	})
}

func TestCreateRecord(t *testing.T) {
	ts, repo := newTestServer(t)
	ctx := context.Background()

	t.Run("submits values through the form", func(t *testing.T) {
		status, body := doJSON(t, http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", map[string]any{
			"data": map[string]any{"name": "Acme", "active": true, "since": "2024-01-01"},
		}, nil)
		gt.Number(t, status).Equal(http.StatusCreated)

		data := body["data"].(map[string]any)
		gt.Value(t, data["name"]).Equal(any("Acme"))
		gt.Value(t, data["since"]).Equal(any("2024-01-01"))

		nav := body["navigation"].(map[string]any)
		gt.Value(t, nav["key"]).Equal(any("Acme"))

		notes := body["notifications"].([]any)
		gt.Array(t, notes).Length(1)

		rec, err := repo.GetEntityRecord(ctx, "CUSTOMER", "Acme")
		gt.NoError(t, err).Required()
		payload, err := rec.Payload()
		gt.NoError(t, err).Required()
		gt.Value(t, payload["active"]).Equal(any(true))
	})

	t.Run("duplicate logical key", func(t *testing.T) {
		status, body := doJSON(t, http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", map[string]any{
			"data": map[string]any{"name": "Acme"},
		}, nil)
		gt.Number(t, status).Equal(http.StatusConflict)
		gt.Value(t, body["errorcode"]).Equal(any("RECORD_ALREADY_EXISTS"))
	})

	t.Run("invalid value", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", map[string]any{
			"data": map[string]any{"name": "Globex", "since": "yesterday"},
		}, nil)
		gt.Number(t, status).Equal(http.StatusBadRequest)
	})

	t.Run("missing logical key", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", map[string]any{
			"data": map[string]any{"active": true},
		}, nil)
		gt.Number(t, status).Equal(http.StatusBadRequest)
	})

	t.Run("unknown field", func(t *testing.T) {
		status, body := doJSON(t, http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", map[string]any{
			"data": map[string]any{"name": "Initech", "color": "red"},
		}, nil)
		gt.Number(t, status).Equal(http.StatusBadRequest)
		gt.Value(t, body["errorcode"]).Equal(any("UNKNOWN_FIELD"))
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/entities/CUSTOMER/records", strings.NewReader("{"))
		gt.NoError(t, err).Required()
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err).Required()
		defer resp.Body.Close()
		gt.Number(t, resp.StatusCode).Equal(http.StatusBadRequest)
	})
}

func declareOrder(t *testing.T, repo *memory.Memory) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateEntityRecord(ctx, types.EntityOfEntities, map[string]any{"name": "ORDER"})
	gt.NoError(t, err).Required()
	for _, f := range []model.FieldSchema{
		{Name: "id", Type: types.FieldTypeLong, IsLogicalKey: true, GUISettings: model.GUISettings{SortKey: 1}},
		{Name: "memo", Type: types.FieldTypeText, GUISettings: model.GUISettings{SortKey: 2}},
	} {
		f.Entity = "ORDER"
		_, err := repo.CreateEntityRecord(ctx, types.EntityOfFields, f.Payload())
		gt.NoError(t, err).Required()
	}
}

func postRaw(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestCreateRecord_LargeIntegers(t *testing.T) {
	ts, repo := newTestServer(t)
	declareOrder(t, repo)
	ctx := context.Background()

	t.Run("long beyond 2^53 is stored exactly", func(t *testing.T) {
		status := postRaw(t, ts.URL+"/api/entities/ORDER/records", `{"data":{"id":9007199254740993,"memo":"first"}}`)
		gt.Number(t, status).Equal(http.StatusCreated)

		rec, err := repo.GetEntityRecord(ctx, "ORDER", "9007199254740993")
		gt.NoError(t, err).Required()
		payload, err := rec.Payload()
		gt.NoError(t, err).Required()
		gt.Value(t, payload["id"]).Equal(any(int64(9007199254740993)))
	})

	t.Run("neighbouring key is a distinct record", func(t *testing.T) {
		status := postRaw(t, ts.URL+"/api/entities/ORDER/records", `{"data":{"id":9007199254740992}}`)
		gt.Number(t, status).Equal(http.StatusCreated)

		_, err := repo.GetEntityRecord(ctx, "ORDER", "9007199254740992")
		gt.NoError(t, err)
	})

	t.Run("long above int64 is rejected", func(t *testing.T) {
		status := postRaw(t, ts.URL+"/api/entities/ORDER/records", `{"data":{"id":1e19}}`)
		gt.Number(t, status).Equal(http.StatusBadRequest)
	})

	t.Run("record API keeps integers exact", func(t *testing.T) {
		status := postRaw(t, ts.URL+"/gemini/api/ORDER", `{"id":9007199254740995,"memo":"raw"}`)
		gt.Number(t, status).Equal(http.StatusCreated)

		rec, err := repo.GetEntityRecord(ctx, "ORDER", "9007199254740995")
		gt.NoError(t, err).Required()
		payload, err := rec.Payload()
		gt.NoError(t, err).Required()
		gt.Value(t, payload["id"]).Equal(any(int64(9007199254740995)))
	})
}

func TestRequestBodyLimit(t *testing.T) {
	ts, _ := newTestServer(t)
	huge := `{"data":{"name":"` + strings.Repeat("x", 1<<20) + `"}}`

	for _, path := range []string{"/api/entities/CUSTOMER/records", "/gemini/api/CUSTOMER"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(huge))
			gt.NoError(t, err).Required()
			defer resp.Body.Close()
			gt.Number(t, resp.StatusCode).Equal(http.StatusRequestEntityTooLarge)

			var body map[string]any
			gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
			gt.Value(t, body["errorcode"]).Equal(any("BODY_TOO_LARGE"))
		})
	}
}

func TestListAndGetRecords(t *testing.T) {
	ts, repo := newTestServer(t)
	ctx := context.Background()
	for _, p := range []map[string]any{
		{"name": "Acme", "active": true},
		{"name": "Globex", "active": false},
	} {
		_, err := repo.CreateEntityRecord(ctx, "CUSTOMER", p)
		gt.NoError(t, err).Required()
	}

	t.Run("list", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/api/entities/CUSTOMER/records", nil, nil)
		gt.Number(t, status).Equal(http.StatusOK)
		gt.Value(t, body["title"]).Equal(any("Customer"))
		gt.Array(t, body["records"].([]any)).Length(2)
	})

	t.Run("search", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/api/entities/CUSTOMER/records?search=active%3D%3Dtrue", nil, nil)
		gt.Number(t, status).Equal(http.StatusOK)
		records := body["records"].([]any)
		gt.Array(t, records).Length(1).Required()
		item := records[0].(map[string]any)
		gt.Value(t, item["key"]).Equal(any("Acme"))
		gt.Value(t, item["label"]).Equal(any("Acme"))
	})

	t.Run("get", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/api/entities/CUSTOMER/records/Globex", nil, nil)
		gt.Number(t, status).Equal(http.StatusOK)
		gt.Value(t, body["key"]).Equal(any("Globex"))
	})

	t.Run("get missing", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/entities/CUSTOMER/records/Nobody", nil, nil)
		gt.Number(t, status).Equal(http.StatusNotFound)
	})
}

func TestRecordAPI(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("bare payload without envelope header", func(t *testing.T) {
		status, body := doJSON(t, http.MethodPost, ts.URL+"/gemini/api/CUSTOMER", map[string]any{"name": "Acme"}, nil)
		gt.Number(t, status).Equal(http.StatusCreated)
		gt.Value(t, body["name"]).Equal(any("Acme"))
	})

	t.Run("envelope", func(t *testing.T) {
		header := map[string]string{recordapi.EnvelopeHeader: recordapi.EnvelopeValue}
		status, body := doJSON(t, http.MethodGet, ts.URL+"/gemini/api/CUSTOMER/Acme", nil, header)
		gt.Number(t, status).Equal(http.StatusOK)
		data := body["data"].(map[string]any)
		gt.Value(t, data["name"]).Equal(any("Acme"))
	})

	t.Run("error body", func(t *testing.T) {
		status, body := doJSON(t, http.MethodGet, ts.URL+"/gemini/api/GHOST", nil, nil)
		gt.Number(t, status).Equal(http.StatusNotFound)
		gt.Value(t, body["errorcode"]).Equal(any("ENTITY_NOT_FOUND"))
		gt.Value(t, body["status"]).Equal(any(float64(404)))
	})
}

// TestRecordAPI_Client drives the form engine through the HTTP record API client
func TestRecordAPI_Client(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()

	client, err := recordapi.New(ts.URL + "/gemini")
	gt.NoError(t, err).Required()
	defer client.Close()

	_, err = client.CreateEntityRecord(ctx, types.EntityOfEntities, map[string]any{"name": "GHOST"})
	gt.NoError(t, err).Required()

	uc, err := usecase.New(client)
	gt.NoError(t, err).Required()

	t.Run("empty schema", func(t *testing.T) {
		schema, err := uc.Schema.ResolveSchema(ctx, "GHOST")
		gt.NoError(t, err).Required()
		gt.Array(t, schema.Fields).Length(0)
	})

	t.Run("customer form", func(t *testing.T) {
		form, err := uc.Form.BuildForm(ctx, "CUSTOMER")
		gt.NoError(t, err).Required()
		defer form.Close()

		for name, v := range map[string]any{"name": "Initech", "active": "true", "since": "2020-02-29"} {
			field, ok := form.Field(name)
			gt.Bool(t, ok).True().Required()
			gt.NoError(t, field.Control.SetValue(v)).Required()
		}
		rec, err := form.Submit(ctx)
		gt.NoError(t, err).Required()
		key, ok := rec.Key(form.Schema)
		gt.Bool(t, ok).True()
		gt.Value(t, key).Equal("Initech")

		got, err := client.GetEntityRecord(ctx, "CUSTOMER", "Initech")
		gt.NoError(t, err).Required()
		payload, err := got.Payload()
		gt.NoError(t, err).Required()
		gt.Value(t, payload["since"]).Equal(any("2020-02-29"))
	})

	t.Run("conflict is reported", func(t *testing.T) {
		_, err := client.CreateEntityRecord(ctx, "CUSTOMER", map[string]any{"name": "Initech"})
		gt.Error(t, err).Is(model.ErrRecordConflict)
	})
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for {
		var msg map[string]any
		gt.NoError(t, wsjson.Read(ctx, conn, &msg)).Required()
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestFormSession(t *testing.T) {
	ts, repo := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/entities/CUSTOMER/form"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	gt.NoError(t, err).Required()
	defer conn.CloseNow()

	form := readUntil(t, ctx, conn, "form")
	data := form["data"].(map[string]any)
	gt.Array(t, data["fields"].([]any)).Length(3)

	gt.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "input", "id": "1", "field": "name", "value": "Acme"})).Required()
	status := readUntil(t, ctx, conn, "status")
	gt.Value(t, status["data"].(map[string]any)["valid"]).Equal(any(true))
	field := readUntil(t, ctx, conn, "field")
	gt.Value(t, field["request_id"]).Equal(any("1"))
	gt.Value(t, field["data"].(map[string]any)["value"]).Equal(any("Acme"))

	gt.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "input", "id": "2", "field": "color", "value": "red"})).Required()
	errMsg := readUntil(t, ctx, conn, "error")
	gt.Value(t, errMsg["data"].(map[string]any)["code"]).Equal(any("UNKNOWN_FIELD"))

	gt.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "submit", "id": "3"})).Required()
	note := readUntil(t, ctx, conn, "notification")
	gt.Value(t, note["data"].(map[string]any)["level"]).Equal(any("success"))
	nav := readUntil(t, ctx, conn, "navigate")
	gt.Value(t, nav["data"].(map[string]any)["key"]).Equal(any("Acme"))
	created := readUntil(t, ctx, conn, "created")
	gt.Value(t, created["request_id"]).Equal(any("3"))

	_, err = repo.GetEntityRecord(ctx, "CUSTOMER", "Acme")
	gt.NoError(t, err)
}

func TestFormSession_LoadFailure(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/entities/NOPE/form"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	gt.NoError(t, err).Required()
	defer conn.CloseNow()

	note := readUntil(t, ctx, conn, "notification")
	gt.Value(t, note["data"].(map[string]any)["level"]).Equal(any("error"))
	errMsg := readUntil(t, ctx, conn, "error")
	gt.Value(t, errMsg["data"].(map[string]any)["code"]).Equal(any("FORM_LOAD_FAILED"))
}
