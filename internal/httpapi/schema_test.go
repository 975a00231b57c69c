package httpapi

import (
	"strings"
	"testing"
)

func TestCheckShapeTaskFields(t *testing.T) {
	valid := []string{
		`{}`,
		`{"title":"A","description":"d","deadline":"2025-01-31","priority":"high","is_complete":false}`,
		`{"title":"","deadline":"","priority":""}`,
	}
	for _, body := range valid {
		if err := checkShape(schemaTaskFields, []byte(body)); err != nil {
			t.Fatalf("checkShape(%s) error = %v", body, err)
		}
	}

	invalid := map[string]string{
		`{"title":5}`:               "title",
		`{"priority":"urgent"}`:     "priority",
		`{"deadline":"31/01/2025"}`: "deadline",
		`{"is_complete":"yes"}`:     "is_complete",
		`[]`:                        "body",
		`{"title":"A"`:              "invalid json",
	}
	for body, want := range invalid {
		err := checkShape(schemaTaskFields, []byte(body))
		if err == nil {
			t.Fatalf("checkShape(%s) succeeded, want error", body)
		}
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("checkShape(%s) error = %q, want mention of %q", body, err, want)
		}
	}
}

func TestCheckShapeCompletionRequiresFlag(t *testing.T) {
	if err := checkShape(schemaCompletion, []byte(`{"is_complete":true}`)); err != nil {
		t.Fatalf("checkShape() error = %v", err)
	}
	if err := checkShape(schemaCompletion, []byte(`{}`)); err == nil {
		t.Fatalf("checkShape({}) succeeded, want missing is_complete error")
	}
}
