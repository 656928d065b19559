package handover

import "testing"

func TestDetect_ExplicitRequestIsImmediate(t *testing.T) {
	d := Detect("I want to speak to a human agent", nil, Options{}, DefaultThresholds())
	if d == nil || !d.Immediate || d.Reason != ReasonExplicitRequest || d.Confidence != 1.0 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDetect_AssistedIssueNotImmediateWithoutIdentity(t *testing.T) {
	d := Detect("My payment failed", nil, Options{}, DefaultThresholds())
	if d == nil || d.Immediate || d.Reason != ReasonAssistedIssue {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDetect_AssistedIssuePromotedWithIdentity(t *testing.T) {
	opts := Options{CollectedEntities: map[string]any{"email": "jane@x.co"}}
	d := Detect("My payment failed", nil, opts, DefaultThresholds())
	if d == nil || !d.Immediate {
		t.Fatalf("expected promotion to immediate: %+v", d)
	}
}

func TestDetect_FrustrationMatches(t *testing.T) {
	d := Detect("this is ridiculous, nothing works", nil, Options{}, DefaultThresholds())
	if d == nil || d.Reason != ReasonFrustration {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDetect_RepetitiveQuestions(t *testing.T) {
	history := []Turn{
		{SenderType: "customer", Content: "how do I track my order"},
		{SenderType: "ai", Content: "here is how"},
		{SenderType: "customer", Content: "how do I track my order please"},
		{SenderType: "ai", Content: "here is how again"},
		{SenderType: "customer", Content: "how do I track order"},
	}
	d := Detect("how do I track my order now", history, Options{}, DefaultThresholds())
	if d == nil || d.Reason != ReasonRepetitiveQuestions {
		t.Fatalf("expected repetitive_questions, got: %+v", d)
	}
}

func TestDetect_ProlongedBackAndForth(t *testing.T) {
	th := DefaultThresholds()
	history := make([]Turn, 0, 14)
	for i := 0; i < 7; i++ {
		history = append(history, Turn{SenderType: "customer", Content: "ok"})
		history = append(history, Turn{SenderType: "ai", Content: "short"})
	}
	d := Detect("still not working", history, Options{}, th)
	if d == nil || d.Reason != ReasonProlongedBackForth {
		t.Fatalf("expected prolonged_back_and_forth, got: %+v", d)
	}
}

func TestDetect_LowConsecutiveConfidence(t *testing.T) {
	low1, low2 := 0.2, 0.1
	history := []Turn{
		{SenderType: "customer", Content: "what about this"},
		{SenderType: "ai", Content: "maybe", Confidence: &low1},
		{SenderType: "customer", Content: "and this"},
		{SenderType: "ai", Content: "unsure", Confidence: &low2},
	}
	d := Detect("anything else", history, Options{}, DefaultThresholds())
	if d == nil || d.Reason != ReasonLowAIConfidence {
		t.Fatalf("expected low_ai_confidence, got: %+v", d)
	}
}

func TestDetect_NoMatchReturnsNil(t *testing.T) {
	d := Detect("what are your store hours", nil, Options{}, DefaultThresholds())
	if d != nil {
		t.Fatalf("expected nil decision, got: %+v", d)
	}
}

func TestJaccardSimilarity_IdenticalIsOne(t *testing.T) {
	if jaccardSimilarity("reset my password", "reset my password") != 1.0 {
		t.Fatalf("expected identical strings to have similarity 1.0")
	}
}

func TestJaccardSimilarity_DisjointIsZero(t *testing.T) {
	if s := jaccardSimilarity("foo bar", "baz qux"); s != 0 {
		t.Fatalf("expected 0, got %v", s)
	}
}
