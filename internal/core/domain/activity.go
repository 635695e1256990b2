package domain

import (
	"math"
	"time"
)

// Action is the kind of mutation recorded in the activity log.
type Action string

const (
	ActionCreate            Action = "create"
	ActionUpdate            Action = "update"
	ActionDelete            Action = "delete"
	ActionReorder           Action = "reorder"
	ActionCompact           Action = "compact"
	ActionStatusChange      Action = "status_change"
	ActionCredentialsChange Action = "credentials_change"
)

// Target types for activity entries that are not content collections.
const (
	TargetContact = "contact"
	TargetUser    = "user"
)

// ActivityEntry is one append-only audit record of an admin mutation.
type ActivityEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ActorID    string    `json:"actor_id"`
	ActorName  string    `json:"actor_name,omitempty"`
	Action     Action    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	Summary    string    `json:"summary"`
}

// Page describes a slice of a newest-first listing.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip for the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}
