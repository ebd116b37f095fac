package tools

import (
	"errors"
	"testing"
)

func priceSpec(name string) Spec {
	return Spec{
		Name:        name,
		Description: "lookup",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"destination_city": map[string]any{"type": "string"},
			},
			"required": []string{"destination_city"},
		},
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(priceSpec("get_ticket_price")); err != nil {
		t.Fatalf("register error: %v", err)
	}
	err := reg.Register(priceSpec("get_ticket_price"))
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if dup.Name != "get_ticket_price" {
		t.Fatalf("expected duplicate name reported, got %q", dup.Name)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected registry unchanged, got %d tools", reg.Len())
	}
}

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	reg := NewRegistry()
	var inv *InvalidSpecError
	if err := reg.Register(Spec{Name: "  "}); !errors.As(err, &inv) {
		t.Fatalf("expected InvalidSpecError for empty name, got %v", err)
	}
	if err := reg.Register(Spec{Name: "no_handler"}); !errors.As(err, &inv) {
		t.Fatalf("expected InvalidSpecError for nil handler, got %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("book_hotel")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if unknown.Name != "book_hotel" {
		t.Fatalf("expected name in error, got %q", unknown.Name)
	}
}

func TestDescribeKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"get_ticket_price", "book_flight", "get_baggage_allowance"}
	for _, name := range names {
		if err := reg.Register(priceSpec(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	first := reg.Describe()
	second := reg.Describe()
	if len(first) != len(names) || len(second) != len(names) {
		t.Fatalf("expected %d tools, got %d and %d", len(names), len(first), len(second))
	}
	for i, name := range names {
		if first[i].Name != name {
			t.Fatalf("describe order: expected %s at %d, got %s", name, i, first[i].Name)
		}
		if second[i].Name != first[i].Name {
			t.Fatalf("describe not idempotent at %d: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}

func TestDescribeCarriesSchema(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(priceSpec("get_ticket_price")); err != nil {
		t.Fatalf("register error: %v", err)
	}
	described := reg.Describe()
	schema := described[0].Schema
	if schema["type"] != "object" {
		t.Fatalf("expected schema object, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map")
	}
	if _, ok := props["destination_city"]; !ok {
		t.Fatalf("expected destination_city property")
	}
}
