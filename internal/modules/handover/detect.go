package handover

// Detect evaluates the priority-ordered rule chain against the current
// message and recent history, returning nil when no rule fires. history is
// ordered oldest-first, ending just before currentMessage.
func Detect(currentMessage string, history []Turn, opts Options, th Thresholds) *Decision {
	identityKnown := hasCollectedIdentity(opts.CollectedEntities)

	if matchesAny(immediatePatterns, currentMessage) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      true,
			Reason:         ReasonExplicitRequest,
			Confidence:     1.0,
			Message:        "Connecting you with a human agent now.",
		}
	}

	if matchesAny(assistedPatterns, currentMessage) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      identityKnown,
			Reason:         ReasonAssistedIssue,
			Confidence:     0.85,
			Message:        "I'd like to get you to the right person for this.",
		}
	}

	if matchesAny(frustrationPatterns, currentMessage) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      identityKnown,
			Reason:         ReasonFrustration,
			Confidence:     0.9,
			Message:        "I'm sorry for the trouble — let me get you a human agent.",
		}
	}

	if isRepetitive(currentMessage, history, th) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      false,
			Reason:         ReasonRepetitiveQuestions,
			Confidence:     0.8,
			Message:        "Let me connect you with someone who can help more directly.",
		}
	}

	if isProlongedBackAndForth(history, th) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      false,
			Reason:         ReasonProlongedBackForth,
			Confidence:     0.75,
			Message:        "This has gone back and forth a while — let me bring in an agent.",
		}
	}

	if hasLowConsecutiveConfidence(history, th) {
		return &Decision{
			ShouldHandover: true,
			Immediate:      false,
			Reason:         ReasonLowAIConfidence,
			Confidence:     0.7,
			Message:        "Let me get a human agent to help with this.",
		}
	}

	return nil
}

// customerMessages returns the content of customer turns only, oldest-first.
func customerMessages(history []Turn) []string {
	out := make([]string, 0, len(history))
	for _, t := range history {
		if t.SenderType == "customer" {
			out = append(out, t.Content)
		}
	}
	return out
}

// isRepetitive checks whether, among the last ≤5 customer messages (plus
// the current one as the newest), at least MaxSimilarQuestions pairs reach
// the Jaccard threshold against the newest message.
func isRepetitive(currentMessage string, history []Turn, th Thresholds) bool {
	prior := customerMessages(history)
	window := 5
	if len(prior) > window {
		prior = prior[len(prior)-window:]
	}
	matches := 0
	for _, msg := range prior {
		if jaccardSimilarity(currentMessage, msg) >= th.JaccardThreshold {
			matches++
		}
	}
	return matches >= th.MaxSimilarQuestions
}

// isProlongedBackAndForth checks the tail of history for MaxBackAndForth or
// more exchanges together with at least MinShortResponses AI turns shorter
// than ShortResponseChars.
func isProlongedBackAndForth(history []Turn, th Thresholds) bool {
	tail := history
	if len(tail) > th.MaxBackAndForth*2 {
		tail = tail[len(tail)-th.MaxBackAndForth*2:]
	}
	exchanges := 0
	shortAIResponses := 0
	for _, t := range tail {
		switch t.SenderType {
		case "customer", "ai":
			exchanges++
		}
		if t.SenderType == "ai" && len(t.Content) < th.ShortResponseChars {
			shortAIResponses++
		}
	}
	return exchanges >= th.MaxBackAndForth && shortAIResponses >= th.MinShortResponses
}

// hasLowConsecutiveConfidence looks for a run of LowConfidenceStreak
// consecutive AI turns, each below LowConfidenceValue. A non-low-confidence
// AI turn resets the streak; other sender types are skipped without
// resetting it, since "consecutive AI turns" only counts AI turns.
func hasLowConsecutiveConfidence(history []Turn, th Thresholds) bool {
	streak := 0
	for _, t := range history {
		if t.SenderType != "ai" {
			continue
		}
		if t.Confidence != nil && *t.Confidence < th.LowConfidenceValue {
			streak++
			if streak >= th.LowConfidenceStreak {
				return true
			}
		} else {
			streak = 0
		}
	}
	return false
}
