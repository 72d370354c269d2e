package enums

type ViolationSeverity string

const (
	ViolationSeverityHarmful   ViolationSeverity = "harmful"
	ViolationSeverityAIFlagged ViolationSeverity = "ai_flagged"
)

type AlertSeverity string

const (
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)
