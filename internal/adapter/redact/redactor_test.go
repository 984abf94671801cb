package redact

import (
	"strings"
	"testing"
)

func TestRedactor_Redact(t *testing.T) {
	redactor := NewRedactor()

	tests := []struct {
		name        string
		payload     map[string]any
		wantApplied bool
		wantFields  []string
	}{
		{
			name:        "email and tax id in one string",
			payload:     map[string]any{"note": "email me at a@b.com, ssn 123-45-6789"},
			wantApplied: true,
			wantFields:  []string{"note:tax_id", "note:email"},
		},
		{
			name:        "nested map path",
			payload:     map[string]any{"contact": map[string]any{"email": "analyst@example.org"}},
			wantApplied: true,
			wantFields:  []string{"contact.email:email"},
		},
		{
			name:        "array index path",
			payload:     map[string]any{"ips": []any{"clean", "10.0.0.1"}},
			wantApplied: true,
			wantFields:  []string{"ips[1]:ipv4"},
		},
		{
			name:        "payment card with separators",
			payload:     map[string]any{"card": "4111 1111 1111 1111"},
			wantApplied: true,
			wantFields:  []string{"card:payment_card"},
		},
		{
			name:        "coordinates",
			payload:     map[string]any{"loc": "51.50735, -0.12776"},
			wantApplied: true,
			wantFields:  []string{"loc:coordinates"},
		},
		{
			name:        "clean payload",
			payload:     map[string]any{"summary": "nothing sensitive here", "count": float64(3)},
			wantApplied: false,
		},
		{
			name:        "non-string leaves pass through",
			payload:     map[string]any{"n": float64(42), "ok": true, "nothing": nil},
			wantApplied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := redactor.Redact(tt.payload)

			if res.Applied != tt.wantApplied {
				t.Errorf("Applied = %v, want %v", res.Applied, tt.wantApplied)
			}
			if len(res.Fields) != len(tt.wantFields) {
				t.Fatalf("Fields = %v, want %v", res.Fields, tt.wantFields)
			}
			for i, want := range tt.wantFields {
				if res.Fields[i] != want {
					t.Errorf("Fields[%d] = %q, want %q", i, res.Fields[i], want)
				}
			}
		})
	}
}

func TestRedactor_TokenCount(t *testing.T) {
	redactor := NewRedactor()
	res := redactor.Redact(map[string]any{"note": "email me at a@b.com, ssn 123-45-6789"})

	note, ok := res.Payload["note"].(string)
	if !ok {
		t.Fatalf("expected string leaf, got %T", res.Payload["note"])
	}
	if got := strings.Count(note, Token); got != 2 {
		t.Errorf("expected token to appear exactly twice, got %d in %q", got, note)
	}
	if len(res.Fields) != 2 {
		t.Errorf("expected two recorded field paths, got %v", res.Fields)
	}
}

func TestRedactor_Idempotent(t *testing.T) {
	redactor := NewRedactor()
	payload := map[string]any{
		"note":    "reach me at someone@example.com or 555-123-4567",
		"details": map[string]any{"ip": "192.168.1.1", "tags": []any{"123-45-6789"}},
	}

	first := redactor.Redact(payload)
	if !first.Applied {
		t.Fatal("expected first pass to redact")
	}

	second := redactor.Redact(first.Payload)
	if second.Applied {
		t.Errorf("expected second pass to be a no-op, redacted fields: %v", second.Fields)
	}
}

func TestRedactor_DoesNotMutateInput(t *testing.T) {
	redactor := NewRedactor()
	inner := map[string]any{"email": "a@b.com"}
	payload := map[string]any{"contact": inner, "list": []any{"10.0.0.1"}}

	redactor.Redact(payload)

	if inner["email"] != "a@b.com" {
		t.Errorf("input map was mutated: %v", inner["email"])
	}
	if payload["list"].([]any)[0] != "10.0.0.1" {
		t.Errorf("input slice was mutated: %v", payload["list"])
	}
}
