package console

import (
	"slices"

	"examguard/internal/integrity/models"
)

// DefaultLimit bounds the rows the console displays.
const DefaultLimit = 200

// Rank returns events ordered by severity (CRITICAL first) and, within a
// severity, most recent first. The sort is stable and the result holds at
// most limit rows; limit <= 0 means DefaultLimit. The input is not modified.
func Rank(events []models.EventView, limit int) []models.EventView {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b models.EventView) int {
		ra, rb := models.SeverityOf(a.Type).Rank(), models.SeverityOf(b.Type).Rank()
		if ra != rb {
			return ra - rb
		}
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
