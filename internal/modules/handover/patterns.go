package handover

import "regexp"

// Each pattern group is checked in priority order; the first matching group
// wins per the detector's contract. Patterns are deliberately broad regexes
// rather than an NLP classifier — the detector must stay pure and
// deterministic.

var immediatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(speak|talk|connect)\s+(to|with)\s+(a\s+)?(human|agent|person|representative|someone)\b`),
	regexp.MustCompile(`(?i)\b(human|real)\s+agent\b`),
	regexp.MustCompile(`(?i)\bmanager\b`),
	regexp.MustCompile(`(?i)\bsupervisor\b`),
	regexp.MustCompile(`(?i)\b(lawyer|attorney|legal action|sue|lawsuit)\b`),
	regexp.MustCompile(`(?i)\bemergency\b`),
}

var assistedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbilling\b`),
	regexp.MustCompile(`(?i)\brefund\b`),
	regexp.MustCompile(`(?i)\baccount\s*(is\s*)?locked\b`),
	regexp.MustCompile(`(?i)\blocked\s*out\b`),
	regexp.MustCompile(`(?i)\bpayment\s*(failed|declined|issue)\b`),
	regexp.MustCompile(`(?i)\btechnical\s*(issue|problem)\b`),
	regexp.MustCompile(`(?i)\b(can'?t|cannot|unable to)\s*log\s*in\b`),
	regexp.MustCompile(`(?i)\bpassword\b`),
	regexp.MustCompile(`(?i)\bsubscription\b`),
}

var frustrationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthis is (ridiculous|useless|a joke|unacceptable)\b`),
	regexp.MustCompile(`(?i)\b(so|really|very) (frustrated|annoyed|angry)\b`),
	regexp.MustCompile(`(?i)\bnot\s*helping\b`),
	regexp.MustCompile(`(?i)\bwaste of time\b`),
	regexp.MustCompile(`(?i)\bfed up\b`),
	regexp.MustCompile(`(?i)\bterrible (service|support)\b`),
	regexp.MustCompile(`(?i)\bworst\b.*\b(service|support|experience)\b`),
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func hasCollectedIdentity(entities map[string]any) bool {
	for _, key := range []string{"email", "name", "phone"} {
		if v, ok := entities[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return true
			}
		}
	}
	return false
}
