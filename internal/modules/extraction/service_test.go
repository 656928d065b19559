package extraction

import (
	"context"
	"testing"
)

func TestExtract_FallbackFindsEmail(t *testing.T) {
	s := New(nil)
	r, err := s.Extract(context.Background(), "you can reach me at foo@bar.com anytime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Email != "foo@bar.com" {
		t.Fatalf("expected email extracted, got %+v", r)
	}
}

func TestParseExtraction_TrimsSurroundingText(t *testing.T) {
	r, ok := parseExtraction("Sure, here you go: {\"email\":\"jane@x.co\",\"name\":\"Jane Doe\"} thanks!")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if r.Email != "jane@x.co" || r.Name != "Jane Doe" {
		t.Fatalf("unexpected parse result: %+v", r)
	}
}

func TestResult_MapOmitsEmptyFields(t *testing.T) {
	r := Result{Email: "a@b.co"}
	m := r.Map()
	if _, ok := m["name"]; ok {
		t.Fatalf("expected name to be omitted")
	}
	if m["email"] != "a@b.co" {
		t.Fatalf("expected email present in map")
	}
}
