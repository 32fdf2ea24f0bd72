package models

// Severity is the display triage rank of an event type. It carries no event
// semantics.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	// SeverityNone marks lifecycle and unrecognised types; it sorts last.
	SeverityNone Severity = ""
)

// SeverityOf maps an event type onto its severity.
func SeverityOf(t EventType) Severity {
	switch t {
	case EventVideoIntegrityBreach:
		return SeverityCritical
	case EventFocusLost:
		return SeverityHigh
	case EventTabSwitch:
		return SeverityMedium
	case EventFullscreenExit:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Rank orders severities ascending: CRITICAL is 0, unranked values come last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

func (s Severity) String() string {
	if s == SeverityNone {
		return "INFO"
	}
	return string(s)
}
