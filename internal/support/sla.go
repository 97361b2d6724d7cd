package support

import (
	"time"

	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
)

const (
	SLAOnTrack  = "on_track"
	SLAAtRisk   = "at_risk"
	SLABreached = "breached"
)

// SLAPolicy holds the first-response and resolution windows for a priority.
type SLAPolicy struct {
	Response   time.Duration
	Resolution time.Duration
}

var slaPolicies = map[string]SLAPolicy{
	supportdm.PriorityLow:    {Response: 24 * time.Hour, Resolution: 72 * time.Hour},
	supportdm.PriorityMedium: {Response: 8 * time.Hour, Resolution: 48 * time.Hour},
	supportdm.PriorityHigh:   {Response: 4 * time.Hour, Resolution: 24 * time.Hour},
	supportdm.PriorityUrgent: {Response: 1 * time.Hour, Resolution: 8 * time.Hour},
}

// PolicyFor falls back to the medium policy for unknown priorities.
func PolicyFor(priority string) SLAPolicy {
	if p, ok := slaPolicies[priority]; ok {
		return p
	}
	return slaPolicies[supportdm.PriorityMedium]
}

// WindowState grades one SLA window. A window that was met (doneAt set) is
// breached only if it was met late; an open window is at risk once less than a
// quarter of it remains.
func WindowState(start, due time.Time, doneAt *time.Time, now time.Time) string {
	if doneAt != nil {
		if doneAt.After(due) {
			return SLABreached
		}
		return SLAOnTrack
	}
	if now.After(due) {
		return SLABreached
	}
	window := due.Sub(start)
	if window > 0 && due.Sub(now) <= window/4 {
		return SLAAtRisk
	}
	return SLAOnTrack
}

func worst(states ...string) string {
	rank := map[string]int{SLAOnTrack: 0, SLAAtRisk: 1, SLABreached: 2}
	out := SLAOnTrack
	for _, s := range states {
		if rank[s] > rank[out] {
			out = s
		}
	}
	return out
}

// TicketSLA grades both windows of a ticket and returns them with the worse of the two.
func TicketSLA(t *supportdm.Ticket, now time.Time) (response, resolution, overall string) {
	response = WindowState(t.CreatedAt, t.ResponseDueAt, t.FirstResponseAt, now)

	resolvedAt := t.ResolvedAt
	if resolvedAt == nil && t.Status == supportdm.TicketClosed {
		// closed without resolving; the clock stops at the last update
		closedAt := t.UpdatedAt
		resolvedAt = &closedAt
	}
	resolution = WindowState(t.CreatedAt, t.ResolutionDueAt, resolvedAt, now)

	return response, resolution, worst(response, resolution)
}
