package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func castModel(tb testing.TB, casts map[string]Cast, opts ...Option) *Model {
	tb.Helper()
	return newTestModel(tb, &Schema{Name: "Item", Casts: casts}, opts...)
}

func TestGet_PrimitiveCasts(t *testing.T) {
	tests := []struct {
		name string
		cast string
		raw  any
		want any
	}{
		{"integer from text", "integer", "17", 17},
		{"integer from leading digits", "int", "42abc", 42},
		{"integer from float", "integer", 3.9, 3},
		{"integer idempotent", "integer", 17, 17},
		{"integer from exponent text", "integer", "1e3", 1000},
		{"integer from max text", "integer", "9223372036854775807", math.MaxInt64},
		{"integer overflow", "integer", 1e20, 0},
		{"integer negative overflow", "integer", -1e20, 0},
		{"integer overflow text", "integer", "1e20", 0},
		{"float from text", "float", "3.5", 3.5},
		{"double from int", "double", 2, 2.0},
		{"real infinity", "real", "Infinity", math.Inf(1)},
		{"decimal pads", "decimal:2", "10", "10.00"},
		{"decimal rounds", "decimal:2", 1.005, "1.01"},
		{"decimal from int", "decimal:1", 7, "7.0"},
		{"decimal idempotent", "decimal:2", "10.00", "10.00"},
		{"bare decimal", "decimal", "10.6", "11"},
		{"decimal three places", "decimal:3", "1.23456", "1.235"},
		{"string from int", "string", 12, "12"},
		{"string idempotent", "string", "x", "x"},
		{"bool from zero text", "bool", "0", false},
		{"bool from one", "boolean", 1, true},
		{"bool from word", "boolean", "yes", true},
		{"bool from empty", "bool", "", false},
		{"nil passes through", "integer", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := castModel(t, map[string]Cast{"field": As(tt.cast)})
			m.SetRawAttribute("field", tt.raw)

			got, err := m.Get("field")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestGet_FloatNaN(t *testing.T) {
	m := castModel(t, map[string]Cast{"ratio": As("float")})
	m.SetRawAttribute("ratio", "NaN")

	got, _ := m.Get("ratio")
	if f, ok := got.(float64); !ok || !math.IsNaN(f) {
		t.Errorf("Get(ratio) = %v, want NaN", got)
	}
}

func TestGet_DecimalInvalid(t *testing.T) {
	m := castModel(t, map[string]Cast{"price": As("decimal:2")})
	m.SetRawAttribute("price", "abc")

	_, err := m.Get("price")
	if !errors.Is(err, ErrInvalidCast) {
		t.Errorf("Get(price) error = %v, want ErrInvalidCast", err)
	}
}

func TestGet_EmptyKey(t *testing.T) {
	m := castModel(t, nil)
	if got, err := m.Get(""); got != nil || err != nil {
		t.Errorf("Get(\"\") = %v, %v; want nil, nil", got, err)
	}
}

func TestMustGet_Panics(t *testing.T) {
	m := castModel(t, map[string]Cast{"price": As("decimal:2")})
	m.SetRawAttribute("price", "abc")

	defer func() {
		if recover() == nil {
			t.Error("MustGet should panic on cast failure")
		}
	}()
	m.MustGet("price")
}

func TestSet_JSONCasts(t *testing.T) {
	m := castModel(t, map[string]Cast{
		"meta":  As("json"),
		"list":  As("array"),
		"obj":   As("object"),
		"items": As("collection"),
	})

	if err := m.Set("meta", map[string]any{"a": 1}); err != nil {
		t.Fatalf("Set(meta) error: %v", err)
	}
	if raw, _ := m.RawAttribute("meta"); raw != `{"a":1}` {
		t.Errorf("raw meta = %v, want JSON text", raw)
	}
	got, err := m.Get("meta")
	if err != nil {
		t.Fatalf("Get(meta) error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"a": float64(1)}) {
		t.Errorf("Get(meta) = %v", got)
	}

	if err := m.Set("list", []any{"x", "y"}); err != nil {
		t.Fatalf("Set(list) error: %v", err)
	}
	if got, _ := m.Get("list"); !reflect.DeepEqual(got, []any{"x", "y"}) {
		t.Errorf("Get(list) = %v", got)
	}

	m.SetRawAttribute("obj", `[1,2]`)
	if got, _ := m.Get("obj"); !reflect.DeepEqual(got, map[string]any{"0": float64(1), "1": float64(2)}) {
		t.Errorf("Get(obj) = %v, want index-keyed map", got)
	}

	m.SetRawAttribute("items", `["a","b"]`)
	got, _ = m.Get("items")
	coll, ok := got.(Collection)
	if !ok || coll.Len() != 2 || coll.Get(1) != "b" {
		t.Errorf("Get(items) = %v (%T), want Collection", got, got)
	}

	if err := m.Set("meta", nil); err != nil {
		t.Fatalf("Set(meta, nil) error: %v", err)
	}
	if raw, ok := m.RawAttribute("meta"); !ok || raw != nil {
		t.Errorf("raw meta = %v, want nil", raw)
	}
}

func TestGet_JSONInvalid(t *testing.T) {
	m := castModel(t, map[string]Cast{"meta": As("json")})
	m.SetRawAttribute("meta", "{not json")

	_, err := m.Get("meta")
	var castErr *InvalidCastError
	if !errors.As(err, &castErr) {
		t.Fatalf("Get(meta) error = %v, want *InvalidCastError", err)
	}
	if castErr.Key != "meta" {
		t.Errorf("Key = %q, want meta", castErr.Key)
	}
}

func TestGet_JSONBlank(t *testing.T) {
	m := castModel(t, map[string]Cast{"meta": As("json")})
	m.SetRawAttribute("meta", "")

	if got, err := m.Get("meta"); got != nil || err != nil {
		t.Errorf("Get(meta) = %v, %v; want nil, nil", got, err)
	}
}

func TestSet_Unencodable(t *testing.T) {
	m := castModel(t, map[string]Cast{"meta": As("json")})

	err := m.Set("meta", map[string]any{"f": func() {}})
	var encErr *JSONEncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("Set() error = %v, want *JSONEncodingError", err)
	}
	if encErr.Key != "meta" {
		t.Errorf("Key = %q, want meta", encErr.Key)
	}
}

func TestSet_JSONPath(t *testing.T) {
	m := castModel(t, map[string]Cast{"meta": As("json")})
	m.SetRawAttribute("meta", `{"size":"L"}`)

	if err := m.Set("meta->color", "red"); err != nil {
		t.Fatalf("Set(meta->color) error: %v", err)
	}
	if err := m.Set("meta->dims->w", 10); err != nil {
		t.Fatalf("Set(meta->dims->w) error: %v", err)
	}

	got, err := m.Get("meta")
	if err != nil {
		t.Fatalf("Get(meta) error: %v", err)
	}
	want := map[string]any{
		"size":  "L",
		"color": "red",
		"dims":  map[string]any{"w": float64(10)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get(meta) = %v, want %v", got, want)
	}
	if _, ok := m.RawAttribute("meta->color"); ok {
		t.Error("path writes should not create a literal key")
	}
}

func TestSet_JSONPath_Uncast(t *testing.T) {
	m := castModel(t, nil)

	if err := m.Set("options->x", 1); err != nil {
		t.Fatalf("Set(options->x) error: %v", err)
	}
	if raw, _ := m.RawAttribute("options"); raw != `{"x":1}` {
		t.Errorf("raw options = %v, want {\"x\":1}", raw)
	}
}

func TestEnumCast(t *testing.T) {
	m := castModel(t, map[string]Cast{
		"suit":     AsEnum(suitEnum),
		"priority": AsEnum(priorityEnum),
	})

	m.SetRawAttribute("suit", "H")
	if got, _ := m.Get("suit"); got != Hearts {
		t.Errorf("Get(suit) = %v, want Hearts", got)
	}

	if err := m.Set("suit", Spades); err != nil {
		t.Fatalf("Set(suit) error: %v", err)
	}
	if raw, _ := m.RawAttribute("suit"); raw != "S" {
		t.Errorf("raw suit = %v, want S", raw)
	}

	if err := m.Set("suit", "S"); err != nil {
		t.Fatalf("Set(suit, S) error: %v", err)
	}
	if raw, _ := m.RawAttribute("suit"); raw != "S" {
		t.Errorf("raw suit = %v, want S", raw)
	}

	if err := m.Set("suit", "X"); err != nil {
		t.Fatalf("Set(suit, X) should be lenient, got %v", err)
	}
	if raw, ok := m.RawAttribute("suit"); !ok || raw != nil {
		t.Errorf("raw suit = %v, want nil for an unknown member", raw)
	}

	m.SetRawAttribute("suit", "X")
	if _, err := m.Get("suit"); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("Get(suit) error = %v, want ErrInvalidCast", err)
	}

	m.SetRawAttribute("priority", float64(2))
	if got, _ := m.Get("priority"); got != High {
		t.Errorf("Get(priority) = %v, want High", got)
	}
	m.SetRawAttribute("priority", "1")
	if got, _ := m.Get("priority"); got != Low {
		t.Errorf("Get(priority) = %v, want Low", got)
	}
}

func TestEnumCast_ByName(t *testing.T) {
	registry := NewRegistry().RegisterEnum(suitEnum)
	m := New(&Schema{Name: "Card", Casts: map[string]Cast{"suit": As("Suit")}}, WithRegistry(registry))

	m.SetRawAttribute("suit", "S")
	if got, err := m.Get("suit"); err != nil || got != Spades {
		t.Errorf("Get(suit) = %v, %v; want Spades", got, err)
	}
}

func TestEncryptedCast(t *testing.T) {
	m := castModel(t, map[string]Cast{
		"secret": As("encrypted"),
		"prefs":  As("encrypted:array"),
		"blob":   As("encrypted:object"),
	}, WithEncrypter(testEncryptor(t)))

	if err := m.Set("secret", "abc"); err != nil {
		t.Fatalf("Set(secret) error: %v", err)
	}
	if raw, _ := m.RawAttribute("secret"); raw == "abc" {
		t.Error("raw secret should be ciphertext")
	}
	if got, _ := m.Get("secret"); got != "abc" {
		t.Errorf("Get(secret) = %v, want abc", got)
	}

	if err := m.Set("prefs", []any{"a", "b"}); err != nil {
		t.Fatalf("Set(prefs) error: %v", err)
	}
	if got, _ := m.Get("prefs"); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("Get(prefs) = %v", got)
	}

	if err := m.Set("blob->k", "v"); err != nil {
		t.Fatalf("Set(blob->k) error: %v", err)
	}
	if got, _ := m.Get("blob"); !reflect.DeepEqual(got, map[string]any{"k": "v"}) {
		t.Errorf("Get(blob) = %v", got)
	}
}

func TestEncryptedCast_RegistryEncrypter(t *testing.T) {
	registry := NewRegistry().EncryptUsing(testEncryptor(t))
	m := New(&Schema{Name: "Item", Casts: map[string]Cast{"secret": As("encrypted")}}, WithRegistry(registry))

	if err := m.Set("secret", "abc"); err != nil {
		t.Fatalf("Set(secret) error: %v", err)
	}
	if got, _ := m.Get("secret"); got != "abc" {
		t.Errorf("Get(secret) = %v, want abc", got)
	}
}

func TestEncryptedCast_Errors(t *testing.T) {
	m := castModel(t, map[string]Cast{"secret": As("encrypted")})

	if err := m.Set("secret", "abc"); !errors.Is(err, ErrMissingEncrypter) {
		t.Errorf("Set() error = %v, want ErrMissingEncrypter", err)
	}

	m = castModel(t, map[string]Cast{"secret": As("encrypted")}, WithEncrypter(testEncryptor(t)))
	m.SetRawAttribute("secret", "not-ciphertext")

	_, err := m.Get("secret")
	var transformErr *TransformError
	if !errors.As(err, &transformErr) || !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Get() error = %v, want TransformError wrapping ErrDecrypt", err)
	}
	if transformErr.Field != "secret" {
		t.Errorf("Field = %q, want secret", transformErr.Field)
	}
}

func TestHashedCast(t *testing.T) {
	m := castModel(t, map[string]Cast{
		"token":    As("hashed:sha256"),
		"password": As("hashed"),
	})

	if err := m.Set("token", "secret"); err != nil {
		t.Fatalf("Set(token) error: %v", err)
	}
	sum := sha256.Sum256([]byte("secret"))
	want := hex.EncodeToString(sum[:])
	raw, _ := m.RawAttribute("token")
	if raw != want {
		t.Errorf("raw token = %v, want %v", raw, want)
	}

	if err := m.Set("token", want); err != nil {
		t.Fatalf("Set(token, hash) error: %v", err)
	}
	if again, _ := m.RawAttribute("token"); again != want {
		t.Error("an existing hash should not be hashed again")
	}
	if got, _ := m.Get("token"); got != want {
		t.Errorf("Get(token) = %v, want the stored hash", got)
	}

	if err := m.Set("password", "hunter2"); err != nil {
		t.Fatalf("Set(password) error: %v", err)
	}
	hashed, _ := m.RawAttribute("password")
	if err := bcrypt.CompareHashAndPassword([]byte(hashed.(string)), []byte("hunter2")); err != nil {
		t.Errorf("bare hashed cast should use bcrypt: %v", err)
	}
}

func TestHashedCast_UnknownAlgorithm(t *testing.T) {
	m := castModel(t, map[string]Cast{"token": As("hashed:md5")})

	err := m.Set("token", "x")
	if !errors.Is(err, ErrInvalidCaster) {
		t.Errorf("Set() error = %v, want ErrInvalidCaster", err)
	}
}

func TestDateCasts(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

	m := castModel(t, map[string]Cast{
		"published_at": As("datetime"),
		"birthday":     As("date"),
		"seen":         As("timestamp"),
		"frozen_at":    As("immutable_datetime"),
		"custom":       As("datetime:02/01/2006"),
	})

	if err := m.Set("published_at", ts); err != nil {
		t.Fatalf("Set(published_at) error: %v", err)
	}
	if raw, _ := m.RawAttribute("published_at"); raw != "2024-03-09 14:30:05" {
		t.Errorf("raw published_at = %v, want storage layout", raw)
	}
	if got, _ := m.Get("published_at"); !ts.Equal(got.(time.Time)) {
		t.Errorf("Get(published_at) = %v, want %v", got, ts)
	}

	m.SetRawAttribute("birthday", "2024-03-09 14:30:05")
	if got, _ := m.Get("birthday"); !got.(time.Time).Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Get(birthday) = %v, want start of day", got)
	}

	m.SetRawAttribute("seen", "2024-03-09")
	if got, _ := m.Get("seen"); got != time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("Get(seen) = %v, want Unix seconds", got)
	}

	m.SetRawAttribute("frozen_at", ts.Unix())
	if got, _ := m.Get("frozen_at"); !ts.Equal(got.(time.Time)) {
		t.Errorf("Get(frozen_at) = %v, want %v", got, ts)
	}

	if err := m.Set("custom", "2024-03-09"); err != nil {
		t.Fatalf("Set(custom) error: %v", err)
	}
	if raw, _ := m.RawAttribute("custom"); raw != "2024-03-09 00:00:00" {
		t.Errorf("raw custom = %v, want storage layout", raw)
	}
}

func TestDateCasts_Blank(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"empty text", ""},
		{"zero text", "0"},
		{"zero int", 0},
		{"zero float", 0.0},
		{"false", false},
		{"empty list", []any{}},
		{"empty map", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := castModel(t, map[string]Cast{"published_at": As("datetime")})

			if err := m.Set("published_at", tt.value); err != nil {
				t.Fatalf("Set() error: %v", err)
			}
			if raw, _ := m.RawAttribute("published_at"); !reflect.DeepEqual(raw, tt.value) {
				t.Errorf("raw = %#v, blank values should be stored as given", raw)
			}
		})
	}
}

func TestDateCasts_Invalid(t *testing.T) {
	m := castModel(t, map[string]Cast{"published_at": As("datetime")})

	err := m.Set("published_at", "not a date")
	if !errors.Is(err, ErrInvalidCast) {
		t.Errorf("Set() error = %v, want ErrInvalidCast", err)
	}
}

func TestDateFields(t *testing.T) {
	m := newTestModel(t, &Schema{Name: "Visit", Dates: []string{"seen_at"}})

	if err := m.Set("seen_at", "2024-01-02"); err != nil {
		t.Fatalf("Set(seen_at) error: %v", err)
	}
	if raw, _ := m.RawAttribute("seen_at"); raw != "2024-01-02 00:00:00" {
		t.Errorf("raw seen_at = %v", raw)
	}
	got, err := m.Get("seen_at")
	if err != nil {
		t.Fatalf("Get(seen_at) error: %v", err)
	}
	if _, ok := got.(time.Time); !ok {
		t.Errorf("Get(seen_at) = %T, want time.Time", got)
	}
}

func TestDateFormat_Custom(t *testing.T) {
	m := newTestModel(t, &Schema{
		Name:       "Visit",
		DateFormat: "02.01.2006",
		Casts:      map[string]Cast{"day": As("date")},
	})

	if err := m.Set("day", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Set(day) error: %v", err)
	}
	if raw, _ := m.RawAttribute("day"); raw != "06.05.2024" {
		t.Errorf("raw day = %v, want 06.05.2024", raw)
	}
	if got, _ := m.Get("day"); got.(time.Time).Day() != 6 {
		t.Errorf("Get(day) = %v", got)
	}
}

func TestDateHandler_Location(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	m := newTestModel(t, &Schema{Name: "Visit", Casts: map[string]Cast{"at": As("datetime")}},
		WithDateHandler(DateHandlerIn(loc)))

	m.SetRawAttribute("at", "2024-01-02 10:00:00")
	got, _ := m.Get("at")
	if got.(time.Time).UTC().Hour() != 8 {
		t.Errorf("Get(at) = %v, want parsed in UTC+2", got)
	}
}

func TestSet_Uncast(t *testing.T) {
	m := castModel(t, nil)
	if err := m.Set("title", "Hello"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got, _ := m.Get("title"); got != "Hello" {
		t.Errorf("Get(title) = %v, want Hello", got)
	}
}
