package model

import "time"

// EventKind names a lifecycle transition worth telling a requester about.
type EventKind string

const (
	EventRequestApproved  EventKind = "request.approved"
	EventRequestAllocated EventKind = "request.allocated"
	EventRequestRejected  EventKind = "request.rejected"
	EventRequestCancelled EventKind = "request.cancelled"
	EventSystemEvicted    EventKind = "system.evicted"
	EventSystemReleased   EventKind = "system.released"
)

// Event is a fire-and-forget notification produced after a successful commit.
type Event struct {
	Kind             EventKind `json:"kind"`
	RequestID        string    `json:"requestId,omitempty"`
	RecipientLoginID string    `json:"-"`
	SystemIDs        []int     `json:"systemIds,omitempty"`
	Message          string    `json:"message"`
	OccurredAt       time.Time `json:"occurredAt"`
}
