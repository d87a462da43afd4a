package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// profile is an owner type with a computed attribute.
type profile struct {
	*Model
}

func newProfile(tb testing.TB, schema *Schema) *profile {
	tb.Helper()
	p := &profile{}
	p.Model = newTestModel(tb, schema, WithMutators(p))
	return p
}

func (p *profile) GetFullNameAttribute(_ any) any {
	first, _ := p.RawAttribute("first")
	last, _ := p.RawAttribute("last")
	return toString(first) + " " + toString(last)
}

func (p *profile) GetInitialAttribute(value any) any {
	s := toString(value)
	if s == "" {
		return ""
	}
	return s[:1]
}

// point has distinct array and JSON projections.
type point struct{ X, Y int }

func (p point) ToArray() (map[string]any, error) {
	return map[string]any{"x": p.X, "y": p.Y}, nil
}

func (p point) JSONSerialize() (map[string]any, error) {
	return map[string]any{"xy": []int{p.X, p.Y}}, nil
}

func TestToArray_Hidden(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "User", Hidden: []string{"password"}})
	m.SetRawAttributes(map[string]any{"name": "Alice", "password": "x"}, true)

	got, err := m.ToArray()
	if err != nil {
		t.Fatalf("ToArray() error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"name": "Alice"}) {
		t.Errorf("ToArray() = %v", got)
	}

	m.MakeVisible("password")
	if got, _ := m.ToArray(); got["password"] != "x" {
		t.Errorf("ToArray() = %v, password should be visible", got)
	}
}

func TestToArray_VisibleWinsOverHidden(t *testing.T) {
	m := newTestModel(t, &Schema{
		Name:    "User",
		Hidden:  []string{"password"},
		Visible: []string{"name", "password"},
	})
	m.SetRawAttributes(map[string]any{"name": "Alice", "email": "a@example.com", "password": "x"}, true)

	got, _ := m.ToArray()
	want := map[string]any{"name": "Alice", "password": "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToArray() = %v, want %v", got, want)
	}
}

func TestToArray_AppendsAndMutators(t *testing.T) {
	p := newProfile(t, &Schema{
		Name:      "Profile",
		Appends:   []string{"full_name"},
		Temporary: []string{"draft"},
	})
	p.SetRawAttributes(map[string]any{"first": "Ada", "last": "Lovelace", "initial": "Augusta", "draft": true}, true)

	arr, err := p.ToArray()
	if err != nil {
		t.Fatalf("ToArray() error: %v", err)
	}
	if arr["full_name"] != "Ada Lovelace" {
		t.Errorf("full_name = %v, want Ada Lovelace", arr["full_name"])
	}
	if arr["initial"] != "A" {
		t.Errorf("initial = %v, getter mutators apply to the view", arr["initial"])
	}
	if arr["draft"] != true {
		t.Errorf("draft = %v, temporary fields stay in the array view", arr["draft"])
	}

	js, err := p.JSONSerialize()
	if err != nil {
		t.Fatalf("JSONSerialize() error: %v", err)
	}
	if _, ok := js["full_name"]; ok {
		t.Error("appended fields should not be in the JSON view")
	}
	if _, ok := js["draft"]; ok {
		t.Error("temporary fields should not be in the JSON view")
	}
	if js["initial"] != "A" {
		t.Errorf("initial = %v, want A", js["initial"])
	}
}

func TestToArray_HiddenAppend(t *testing.T) {
	p := newProfile(t, &Schema{Name: "Profile", Appends: []string{"full_name"}, Hidden: []string{"full_name"}})

	arr, _ := p.ToArray()
	if _, ok := arr["full_name"]; ok {
		t.Error("hidden appends should not be computed")
	}
}

func TestToArray_Casts(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	m := newTestModel(t, &Schema{
		Name:  "Order",
		Dates: []string{"created_at"},
		Casts: map[string]Cast{
			"total":     As("decimal:2"),
			"suit":      AsEnum(suitEnum),
			"shipped":   As("date"),
			"delivered": As("datetime:02/01/2006"),
			"id":        Using(AsUUID()),
			"count":     As("integer"),
		},
	})
	m.SetRawAttributes(map[string]any{
		"total":      "5",
		"suit":       "S",
		"created_at": "2024-01-02 03:04:05",
		"shipped":    "2024-03-09 10:00:00",
		"delivered":  "2024-03-09 00:00:00",
		"id":         id.String(),
		"count":      "3",
	}, true)

	got, err := m.ToArray()
	if err != nil {
		t.Fatalf("ToArray() error: %v", err)
	}

	want := map[string]any{
		"total":      "5.00",
		"suit":       "S",
		"created_at": "2024-01-02T03:04:05.000000Z",
		"shipped":    "2024-03-09T00:00:00.000000Z",
		"delivered":  "09/03/2024",
		"id":         id.String(),
		"count":      3,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ToArray()[%s] = %v (%T), want %v", k, got[k], got[k], v)
		}
	}
}

func TestToArray_NestedProjections(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "Shape"})
	m.SetRawAttribute("origin", point{X: 1, Y: 2})
	m.SetRawAttribute("path", []point{{X: 3, Y: 4}})

	arr, err := m.ToArray()
	if err != nil {
		t.Fatalf("ToArray() error: %v", err)
	}
	if !reflect.DeepEqual(arr["origin"], map[string]any{"x": 1, "y": 2}) {
		t.Errorf("origin = %v, want the Arrayable projection", arr["origin"])
	}
	if !reflect.DeepEqual(arr["path"], []any{map[string]any{"x": 3, "y": 4}}) {
		t.Errorf("path = %v", arr["path"])
	}

	js, err := m.JSONSerialize()
	if err != nil {
		t.Fatalf("JSONSerialize() error: %v", err)
	}
	if !reflect.DeepEqual(js["origin"], map[string]any{"xy": []any{1, 2}}) {
		t.Errorf("origin = %v, want the JSONSerializable projection", js["origin"])
	}
}

func TestToJSON(t *testing.T) {
	m := newTestModel(t, &Schema{
		Name:   "User",
		Hidden: []string{"password"},
		Casts:  map[string]Cast{"suit": AsEnum(suitEnum), "age": As("integer")},
	})
	m.SetRawAttributes(map[string]any{"name": "<Alice>", "password": "x", "suit": "H", "age": "30"}, true)

	got, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	want := `{"age":30,"name":"<Alice>","suit":"H"}`
	if got != want {
		t.Errorf("ToJSON() = %s, want %s", got, want)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if decoded["suit"] != "H" {
		t.Errorf("MarshalJSON suit = %v", decoded["suit"])
	}
}

func TestToJSON_CastError(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "Order", Casts: map[string]Cast{"total": As("decimal:2")}})
	m.SetRawAttribute("total", "abc")

	if _, err := m.ToJSON(); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("ToJSON() error = %v, want ErrInvalidCast", err)
	}
}

func TestToFillable(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "User", Fillable: []string{"name"}})
	m.SetRawAttributes(map[string]any{"name": "Alice", "role": "admin"}, true)

	out, err := m.ToFillable()
	if err != nil {
		t.Fatalf("ToFillable() error: %v", err)
	}
	if !reflect.DeepEqual(out, map[string]any{"name": "Alice"}) {
		t.Errorf("ToFillable() = %v", out)
	}

	registry := m.Registry()
	registry.Unguard()
	defer registry.Reguard()
	if out, _ := m.ToFillable(); len(out) != 1 {
		t.Errorf("ToFillable() = %v, the unguarded state does not widen it", out)
	}
}

func TestEncode(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "User", Temporary: []string{"tmp"}})
	m.SetRawAttributes(map[string]any{"name": "Alice", "tmp": 1}, true)

	data, err := m.Encode(JSON())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if string(data) != `{"name":"Alice"}` {
		t.Errorf("Encode() = %s", data)
	}

	_, err = m.Encode(&failingCodec{failMarshal: true})
	if !errors.Is(err, ErrMarshal) {
		t.Errorf("Encode() error = %v, want ErrMarshal", err)
	}
}
