package benchmarks

import (
	"context"
	"testing"

	model "github.com/artisanbr/generic-model"
	modeltest "github.com/artisanbr/generic-model/testing"
)

func seeded(b *testing.B, registry *model.Registry) *modeltest.User {
	b.Helper()
	u := modeltest.NewUser(model.WithRegistry(registry), model.WithEncrypter(modeltest.TestEncryptor(b)))
	err := u.ForceFill(map[string]any{
		"first_name": "Alice",
		"last_name":  "Smith",
		"email":      "alice@example.com",
		"age":        "30",
		"price":      12.5,
		"meta":       map[string]any{"color": "red"},
		"status":     "active",
		"ssn":        "123-45-6789",
	})
	if err != nil {
		b.Fatalf("ForceFill error: %v", err)
	}
	return u
}

func BenchmarkModel_Get_Raw(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.Get("ssn")
	}
}

func BenchmarkModel_Get_Integer(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.Get("age")
	}
}

func BenchmarkModel_Get_Decimal(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.Get("price")
	}
}

func BenchmarkModel_Get_Encrypted(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.Get("email")
	}
}

func BenchmarkModel_Get_Mutator(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.Get("full_name")
	}
}

func BenchmarkModel_Set_JSONPath(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = u.Set("meta->size", i)
	}
}

func BenchmarkModel_Fill(b *testing.B) {
	registry := model.NewRegistry()
	input := map[string]any{
		"first_name": "Alice",
		"last_name":  "Smith",
		"age":        30,
		"is_admin":   true,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		u := modeltest.NewUser(model.WithRegistry(registry))
		_ = u.Fill(input)
	}
}

func BenchmarkModel_ToArray(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.ToArray()
	}
}

func BenchmarkModel_ToJSON(b *testing.B) {
	u := seeded(b, model.NewRegistry())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = u.ToJSON()
	}
}

func BenchmarkProcessor_Store(b *testing.B) {
	registry := model.NewRegistry()
	proc, err := model.NewProcessor(model.JSON(), func() *modeltest.User {
		return modeltest.NewUser(model.WithRegistry(registry))
	})
	if err != nil {
		b.Fatalf("NewProcessor error: %v", err)
	}
	u := seeded(b, registry)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Store(context.Background(), u)
	}
}

func BenchmarkProcessor_Load(b *testing.B) {
	registry := model.NewRegistry()
	proc, err := model.NewProcessor(model.JSON(), func() *modeltest.User {
		return modeltest.NewUser(model.WithRegistry(registry))
	})
	if err != nil {
		b.Fatalf("NewProcessor error: %v", err)
	}
	data, err := proc.Store(context.Background(), seeded(b, registry))
	if err != nil {
		b.Fatalf("Store error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Load(context.Background(), data)
	}
}

func BenchmarkProcessor_Send(b *testing.B) {
	registry := model.NewRegistry()
	enc := modeltest.TestEncryptor(b)
	proc, err := model.NewProcessor(model.JSON(), func() *modeltest.User {
		return modeltest.NewUser(model.WithRegistry(registry), model.WithEncrypter(enc))
	})
	if err != nil {
		b.Fatalf("NewProcessor error: %v", err)
	}
	u := seeded(b, registry)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = proc.Send(context.Background(), u)
	}
}

func BenchmarkUnguarded_Parallel(b *testing.B) {
	registry := model.NewRegistry()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = registry.Unguarded(func() error {
				if !registry.IsUnguarded() {
					b.Error("registry should be unguarded inside the scope")
				}
				return nil
			})
		}
	})
}
