package domain

import "time"

// Toast is the render contract for an in-app toast.
type Toast struct {
	ID          string    `json:"id"`
	Key         DedupKey  `json:"key"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	EventTitle  string    `json:"eventTitle,omitempty"`
	Requestor   string    `json:"requestor,omitempty"`
	Department  string    `json:"department,omitempty"`
	Schedule    string    `json:"schedule,omitempty"`
	Timestamp   string    `json:"timestamp"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	ShownAt     time.Time `json:"shownAt"`
	DismissAt   time.Time `json:"dismissAt"`
	Activatable bool      `json:"activatable"`
}
