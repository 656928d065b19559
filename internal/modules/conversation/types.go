// Package conversation implements the Conversation Core: the per-room
// turn algorithm that ties together persistence, handover detection,
// identity extraction, retrieval, and real-time fan-out. Mixed concerns in
// a monolithic chat orchestrator are deliberately kept apart here — this
// package only controls the turn; Session Store, Handover Detector, Agent
// Directory, and Fan-out each own their slice and are injected as
// collaborators.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/neurobridge/support-backend/internal/modules/query"
)

// TurnResult is returned from a completed turn (an AI answer or a handover);
// a failed turn returns an error instead.
type TurnResult struct {
	CustomerMessageID uuid.UUID       `json:"customer_message_id"`
	AIText            string          `json:"ai_text,omitempty"`
	Sources           []query.Source  `json:"sources,omitempty"`
	Handover          *HandoverResult `json:"handover,omitempty"`
}

// HandoverResult is populated when a turn resolves into a human handover
// instead of (or in addition to) an AI response.
type HandoverResult struct {
	Reason        string `json:"reason"`
	AssignedAgent string `json:"assigned_agent,omitempty"`
	Waiting       bool   `json:"waiting,omitempty"`
}

const (
	apologyMessage  = "I apologize, but I encountered an error processing your message. A human agent will follow up shortly."
	waitMessage     = "All our agents are currently busy. Please wait while we find someone to help you."
	reminderMessage = "A human agent has already been notified and will be with you shortly."
)

func nowUTC() time.Time { return time.Now().UTC() }
