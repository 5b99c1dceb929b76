package domain

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type inferred for an inbound event.
type Kind string

const (
	KindNewEvent            Kind = "new_event"
	KindEntityStatusChange  Kind = "entity_status_change"
	KindSubItemStatusChange Kind = "sub_item_status_change"
)

// Relationship describes how an event concerns the viewer.
type Relationship string

const (
	RelationshipOwner    Relationship = "owner"
	RelationshipWatching Relationship = "watching"
	RelationshipGeneric  Relationship = "generic"
)

// Entity statuses that produce an EntityStatusChange.
const (
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const unknownPart = "unknown"

// NotificationDescriptor is the immutable result of classifying a RawEvent.
type NotificationDescriptor struct {
	Kind              Kind         `json:"kind"`
	Relationship      Relationship `json:"relationship"`
	Title             string       `json:"title"`
	Body              string       `json:"body"`
	SubjectEventID    string       `json:"subject_event_id"`
	SubjectEventTitle string       `json:"subject_event_title"`
	Status            string       `json:"status,omitempty"`
	SubItemID         string       `json:"sub_item_id,omitempty"`
	Requestor         string       `json:"requestor,omitempty"`
	Department        string       `json:"department,omitempty"`
	Schedule          string       `json:"schedule,omitempty"`
	OccurredAt        time.Time    `json:"occurred_at"`
}

// DedupKey identifies one occurrence of a logically distinct notification.
type DedupKey string

func (k DedupKey) String() string { return string(k) }

// Key computes the dedup key. The occurrence timestamp is part of the key so
// repeated business transitions stay distinct while retries of the same push
// message collapse.
func (d NotificationDescriptor) Key() DedupKey {
	return DedupKey(d.Identity() + "|" + strconv.FormatInt(d.OccurredAt.UnixMilli(), 10))
}

// Identity is the key without its timestamp component.
func (d NotificationDescriptor) Identity() string {
	parts := []string{string(d.Kind), keyPart(d.SubjectEventID)}
	switch d.Kind {
	case KindEntityStatusChange:
		parts = append(parts, keyPart(d.Status))
	case KindSubItemStatusChange:
		parts = append(parts, keyPart(d.SubItemID), keyPart(d.Status))
	}
	return strings.Join(parts, "|")
}

func keyPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return unknownPart
	}
	return strings.ReplaceAll(value, "|", "/")
}
