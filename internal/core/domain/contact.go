package domain

import "time"

// ContactStatus represents the triage state of a contact submission.
type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactArchived ContactStatus = "archived"
)

// validContactTransitions defines the allowed triage moves.
var validContactTransitions = map[ContactStatus][]ContactStatus{
	ContactNew:      {ContactRead, ContactArchived},
	ContactRead:     {ContactArchived, ContactNew},
	ContactArchived: {ContactRead},
}

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s ContactStatus) CanTransitionTo(next ContactStatus) bool {
	for _, allowed := range validContactTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s ContactStatus) Valid() bool {
	_, ok := validContactTransitions[s]
	return ok
}

// ContactSubmission is a message sent through the public contact form.
type ContactSubmission struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Subject   string        `json:"subject,omitempty"`
	Company   string        `json:"company,omitempty"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
