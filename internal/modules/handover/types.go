// Package handover implements the Handover Detector: a pure, deterministic
// function from a message and its surrounding context to a handover
// decision. It performs no I/O and accepts no context.Context — the type
// signature itself enforces that it never suspends, per the teacher's
// convention of isolating pure scoring/classification logic (mirrored from
// its internal/utils pattern) away from anything that touches the network.
package handover

// Turn is one prior message as the detector sees it: just enough to score
// repetition, back-and-forth length, and AI confidence trends.
type Turn struct {
	SenderType string // "customer" | "ai" | "agent" | "system"
	Content    string
	Confidence *float64 // AI-reported confidence, nil if not an AI turn or unset
}

// Options carries detector knobs the caller already has in hand.
type Options struct {
	CollectedEntities map[string]any
}

// Reason enumerates the detector's possible triggers, in priority order.
type Reason string

const (
	ReasonExplicitRequest     Reason = "explicit_request"
	ReasonAssistedIssue       Reason = "assisted_issue"
	ReasonFrustration         Reason = "frustration"
	ReasonRepetitiveQuestions Reason = "repetitive_questions"
	ReasonProlongedBackForth  Reason = "prolonged_back_and_forth"
	ReasonLowAIConfidence     Reason = "low_ai_confidence"
)

// Decision is the detector's verdict. A nil *Decision from Detect means no
// handover is warranted.
type Decision struct {
	ShouldHandover bool
	Immediate      bool
	Reason         Reason
	Confidence     float64
	Message        string
}

// Thresholds holds every configurable knob named in the detector's spec.
// Zero-value Thresholds is invalid; use DefaultThresholds().
type Thresholds struct {
	MaxSimilarQuestions int
	JaccardThreshold    float64
	MaxBackAndForth     int
	ShortResponseChars  int
	MinShortResponses   int
	LowConfidenceValue  float64
	LowConfidenceStreak int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxSimilarQuestions: 3,
		JaccardThreshold:    0.7,
		MaxBackAndForth:     6,
		ShortResponseChars:  120,
		MinShortResponses:   3,
		LowConfidenceValue:  0.35,
		LowConfidenceStreak: 2,
	}
}
