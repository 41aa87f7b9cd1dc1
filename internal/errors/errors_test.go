package errors

import (
	"fmt"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic', got '%s'", ee.Category)
	}
}

func TestBuilderMetadata(t *testing.T) {
	t.Parallel()

	ee := Newf("station %q not found", "Pinerolo").
		Component("station").
		Category(CategoryNotFound).
		Context("station_name", "Pinerolo").
		Build()

	if ee.GetComponent() != "station" {
		t.Errorf("Expected component 'station', got '%s'", ee.GetComponent())
	}
	if ee.GetCategory() != string(CategoryNotFound) {
		t.Errorf("Expected category 'not-found', got '%s'", ee.GetCategory())
	}
	ctx := ee.GetContext()
	if ctx["station_name"] != "Pinerolo" {
		t.Errorf("Expected context station_name 'Pinerolo', got '%v'", ctx["station_name"])
	}
}

func TestCategoryHeuristics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		msg  string
		want ErrorCategory
	}{
		{"connection refused", CategoryNetwork},
		{"station not found", CategoryNotFound},
		{"UNIQUE constraint failed: stations.name", CategoryConflict},
		{"invalid interval", CategoryValidation},
	}

	for _, tc := range cases {
		ee := Newf("%s", tc.msg).Build()
		if ee.Category != tc.want {
			t.Errorf("message %q: expected category %q, got %q", tc.msg, tc.want, ee.Category)
		}
	}
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryDatabase).Build()
	b := Newf("second").Category(CategoryDatabase).Build()

	if !Is(a, b) {
		t.Error("expected errors with matching categories to satisfy Is")
	}
}
