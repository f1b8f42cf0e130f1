package htmx

import "tictacshift/internal/models"

// openFirst orders rooms that can still be joined ahead of the rest,
// keeping the registry's code order within each group.
func openFirst(rooms []models.RoomSummary) []models.RoomSummary {
	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		if r.Open {
			out = append(out, r)
		}
	}
	for _, r := range rooms {
		if !r.Open {
			out = append(out, r)
		}
	}
	return out
}
