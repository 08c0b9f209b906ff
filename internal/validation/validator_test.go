package validation

import (
	"strings"
	"testing"
)

type listing struct {
	ID         string  `json:"id" validate:"required"`
	Price      float64 `json:"price" validate:"gte=0"`
	Powertrain string  `json:"powertrain" validate:"oneof=gas hybrid plug-in-hybrid ev"`
	Hidden     string  `json:"-" validate:"required"`
}

type envelope struct {
	Vehicle *listing `json:"vehicle" validate:"required"`
}

func TestStructMessagesUseJSONNames(t *testing.T) {
	err := Struct(&listing{Price: -1, Powertrain: "steam", Hidden: "x"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{
		"id is required",
		"price must be >= 0",
		`powertrain must be one of [gas hybrid plug-in-hybrid ev], got "steam"`,
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestStructNested(t *testing.T) {
	err := Struct(&envelope{})
	if err == nil || err.Error() != "vehicle is required" {
		t.Fatalf("unexpected error: %v", err)
	}

	err = Struct(&envelope{Vehicle: &listing{ID: "a", Powertrain: "ev", Hidden: "x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetIsSingleton(t *testing.T) {
	if Get() != Get() {
		t.Fatal("expected the same validator instance")
	}
}
