package model_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
)

func TestEntityRecord_Payload(t *testing.T) {
	rec := model.NewEntityRecord(map[string]any{"name": "Ann"})
	payload, err := rec.Payload()
	gt.NoError(t, err).Required()
	gt.Value(t, payload["name"]).Equal("Ann")

	_, err = (&model.EntityRecord{Data: []any{}}).Payload()
	gt.Error(t, err).Is(model.ErrInvalidRecord)

	_, err = (&model.EntityRecord{}).Payload()
	gt.Error(t, err).Is(model.ErrInvalidRecord)
}

func TestEntityRecord_RecordsFromJSON(t *testing.T) {
	body := `{"data":[{"data":{"name":"a"}},{"data":{"name":"b"}}]}`

	var rec model.EntityRecord
	gt.NoError(t, json.Unmarshal([]byte(body), &rec)).Required()

	records, err := rec.Records()
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(2)

	payload, err := records[1].Payload()
	gt.NoError(t, err).Required()
	gt.Value(t, payload["name"]).Equal("b")
}

func TestEntityRecord_RecordsShapeMismatch(t *testing.T) {
	_, err := model.NewEntityRecord(map[string]any{"name": "a"}).Records()
	gt.Error(t, err).Is(model.ErrInvalidRecord)

	_, err = (&model.EntityRecord{Data: []any{"not a record"}}).Records()
	gt.Error(t, err).Is(model.ErrInvalidRecord)

	_, err = (&model.EntityRecord{Data: []any{map[string]any{"name": "a"}}}).Records()
	gt.Error(t, err).Is(model.ErrInvalidRecord)
}

func TestRecordKey(t *testing.T) {
	testCases := []struct {
		name    string
		payload map[string]any
		keys    []string
		want    string
		ok      bool
	}{
		{name: "single key", payload: map[string]any{"name": "Ann"}, keys: []string{"name"}, want: "Ann", ok: true},
		{name: "composite key", payload: map[string]any{"entity": "CUSTOMER", "name": "age"}, keys: []string{"entity", "name"}, want: "CUSTOMER/age", ok: true},
		{name: "integral number", payload: map[string]any{"code": float64(42)}, keys: []string{"code"}, want: "42", ok: true},
		{name: "number beyond int64", payload: map[string]any{"code": 1e19}, keys: []string{"code"}, want: "10000000000000000000", ok: true},
		{name: "int64 beyond 2^53", payload: map[string]any{"code": int64(9007199254740993)}, keys: []string{"code"}, want: "9007199254740993", ok: true},
		{name: "json number", payload: map[string]any{"code": json.Number("9007199254740993")}, keys: []string{"code"}, want: "9007199254740993", ok: true},
		{name: "reference object", payload: map[string]any{"owner": map[string]any{"name": "Bob"}}, keys: []string{"owner"}, want: "Bob", ok: true},
		{name: "id fallback", payload: map[string]any{"id": "x1"}, want: "x1", ok: true},
		{name: "missing value", payload: map[string]any{"name": ""}, keys: []string{"name"}, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := model.RecordKey(tc.payload, tc.keys)
			gt.Value(t, ok).Equal(tc.ok)
			gt.Value(t, key).Equal(tc.want)
		})
	}
}

func TestEntityRecord_Key(t *testing.T) {
	schema, err := model.NewEntitySchema("CUSTOMER", nil, customerFields())
	gt.NoError(t, err).Required()

	key, ok := model.NewEntityRecord(map[string]any{"name": "Ann", "id": "u1"}).Key(schema)
	gt.Bool(t, ok).True()
	gt.Value(t, key).Equal("Ann")

	key, ok = model.NewEntityRecord(map[string]any{"id": "u1"}).Key(schema)
	gt.Bool(t, ok).True()
	gt.Value(t, key).Equal("u1")

	fieldSchema, err := model.NewEntitySchema(types.EntityOfFields, nil, nil)
	gt.NoError(t, err).Required()
	key, ok = model.NewEntityRecord(map[string]any{"entity": "CUSTOMER", "name": "age"}).Key(fieldSchema)
	gt.Bool(t, ok).True()
	gt.Value(t, key).Equal("CUSTOMER/age")
}

func TestEntityRecord_Label(t *testing.T) {
	schema, err := model.NewEntitySchema("CUSTOMER", nil, []model.FieldSchema{
		{Name: "code", Type: types.FieldTypeText, IsLogicalKey: true},
		{Name: "name", Type: types.FieldTypeText, GUISettings: model.GUISettings{UseAsDesc: true, SortKey: 1}},
		{Name: "city", Type: types.FieldTypeText, GUISettings: model.GUISettings{UseAsDesc: true, SortKey: 2}},
	})
	gt.NoError(t, err).Required()

	t.Run("joins description fields", func(t *testing.T) {
		rec := model.NewEntityRecord(map[string]any{"code": "C1", "name": "Acme", "city": "Rome"})
		gt.Value(t, rec.Label(schema)).Equal("Acme Rome")
	})

	t.Run("falls back to key", func(t *testing.T) {
		rec := model.NewEntityRecord(map[string]any{"code": "C1"})
		gt.Value(t, rec.Label(schema)).Equal("C1")
	})
}
