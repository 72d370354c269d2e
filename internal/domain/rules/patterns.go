package rules

import "regexp"

// Pattern rule sets for outbound message screening. Harmful rules are a hard
// block, first match wins. Suspicious rules are counted per distinct rule and
// escalate to review only when SuspiciousEscalation distinct rules match.
const SuspiciousEscalation = 2

type PatternRule struct {
	Name string
	re   *regexp.Regexp
}

var harmfulRules = []PatternRule{
	{Name: "violence", re: regexp.MustCompile(`(?i)\b(kill|murder|harm|hurt|attack|violence)\b`)},
	{Name: "fraud", re: regexp.MustCompile(`(?i)\b(scam|fraud|cheat|steal|money\s*transfer)\b`)},
	{Name: "explicit", re: regexp.MustCompile(`(?i)\b(sex|porn|nude|explicit)\b`)},
	{Name: "drugs", re: regexp.MustCompile(`(?i)\b(drug|cocaine|heroin|marijuana)\b`)},
	{Name: "weapons", re: regexp.MustCompile(`(?i)\b(bomb|weapon|gun|knife)\b`)},
	{Name: "hate", re: regexp.MustCompile(`(?i)\b(hate|racist|terrorist)\b`)},
	{Name: "card_number", re: regexp.MustCompile(`\d{16}`)},
	{Name: "ssn", re: regexp.MustCompile(`\d{3}[-.\s]?\d{2}[-.\s]?\d{4}`)},
	{Name: "credential_sharing", re: regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*\S+`)},
}

var suspiciousRules = []PatternRule{
	{Name: "meeting", re: regexp.MustCompile(`(?i)\b(meet|hotel|room|private|alone)\b`)},
	{Name: "money", re: regexp.MustCompile(`(?i)\b(money|cash|payment|bank|account)\b`)},
	{Name: "urgency", re: regexp.MustCompile(`(?i)\b(urgent|emergency|help|please)\b`)},
	{Name: "external_app", re: regexp.MustCompile(`(?i)(whatsapp|telegram|signal|wickr)`)},
	{Name: "phone_number", re: regexp.MustCompile(`\+?\d{10,15}`)},
	{Name: "email", re: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
}

// MatchHarmful returns the name of the first harmful rule matching text.
func MatchHarmful(text string) (string, bool) {
	for _, rule := range harmfulRules {
		if rule.re.MatchString(text) {
			return rule.Name, true
		}
	}
	return "", false
}

// MatchSuspicious returns the names of all distinct suspicious rules matching
// text, in rule order.
func MatchSuspicious(text string) []string {
	var matched []string
	for _, rule := range suspiciousRules {
		if rule.re.MatchString(text) {
			matched = append(matched, rule.Name)
		}
	}
	return matched
}
