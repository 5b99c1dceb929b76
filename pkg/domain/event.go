package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawEvent is a payload received from the push channel. Producers disagree on
// field names, so every concept is resolved from an ordered list of aliases.
// Fields keeps the original payload for passive consumers.
type RawEvent struct {
	Type              string         `json:"type,omitempty"`
	EventID           string         `json:"eventId,omitempty"`
	EventTitle        string         `json:"eventTitle,omitempty"`
	Message           string         `json:"message,omitempty"`
	EventStatus       string         `json:"eventStatus,omitempty"`
	Status            string         `json:"status,omitempty"`
	NewStatus         string         `json:"newStatus,omitempty"`
	SubItem           bool           `json:"subItem,omitempty"`
	SubItemID         string         `json:"subItemId,omitempty"`
	SubItemName       string         `json:"subItemName,omitempty"`
	SubItemStatus     string         `json:"subItemStatus,omitempty"`
	Requestor         string         `json:"requestor,omitempty"`
	RequestorID       string         `json:"requestorId,omitempty"`
	Department        string         `json:"department,omitempty"`
	TaggedDepartments []string       `json:"taggedDepartments,omitempty"`
	Schedule          string         `json:"schedule,omitempty"`
	Location          string         `json:"location,omitempty"`
	Actor             string         `json:"actorName,omitempty"`
	Timestamp         time.Time      `json:"timestamp,omitempty"`
	Fields            map[string]any `json:"-"`
}

var (
	aliasType          = []string{"type", "kind", "notificationType"}
	aliasEventID       = []string{"eventId", "event_id", "id"}
	aliasEventTitle    = []string{"eventTitle", "event_title", "title"}
	aliasMessage       = []string{"message", "body", "text"}
	aliasEventStatus   = []string{"eventStatus", "event_status"}
	aliasStatus        = []string{"status"}
	aliasNewStatus     = []string{"newStatus", "new_status"}
	aliasSubItemID     = []string{"subItemId", "sub_item_id", "requirementId", "locationId"}
	aliasSubItemName   = []string{"subItemName", "sub_item_name", "requirementName", "locationName"}
	aliasSubItemStatus = []string{"subItemStatus", "sub_item_status", "requirementStatus", "locationStatus"}
	aliasRequestor     = []string{"requestor", "requestorName", "requestor_name"}
	aliasRequestorID   = []string{"requestorId", "requestor_id", "userId", "user_id"}
	aliasDepartment    = []string{"department", "requestorDepartment", "requestor_department"}
	aliasTagged        = []string{"taggedDepartments", "tagged_departments", "departments"}
	aliasSchedule      = []string{"schedule"}
	aliasLocation      = []string{"location", "venue"}
	aliasActor         = []string{"actorName", "actor", "updatedBy", "updated_by"}
	aliasTimestamp     = []string{"timestamp", "createdAt", "created_at", "updatedAt", "updated_at"}
	envelopeKeys       = []string{"data", "payload"}
)

// UnmarshalJSON decodes a heterogeneous payload, unwrapping {type,data} and
// {event,payload} envelopes.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("domain: decode raw event: %w", err)
	}
	*e = RawEventFromMap(fields)
	return nil
}

// DecodeRawEvent parses a push payload.
func DecodeRawEvent(data []byte) (RawEvent, error) {
	var evt RawEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return RawEvent{}, err
	}
	return evt, nil
}

// RawEventFromMap resolves aliases from a loosely typed payload.
func RawEventFromMap(fields map[string]any) RawEvent {
	fields = unwrapEnvelope(fields)
	evt := RawEvent{
		Type:              lookupString(fields, aliasType),
		EventID:           lookupString(fields, aliasEventID),
		EventTitle:        lookupString(fields, aliasEventTitle),
		Message:           lookupString(fields, aliasMessage),
		EventStatus:       lookupString(fields, aliasEventStatus),
		Status:            lookupString(fields, aliasStatus),
		NewStatus:         lookupString(fields, aliasNewStatus),
		SubItemID:         lookupString(fields, aliasSubItemID),
		SubItemName:       lookupString(fields, aliasSubItemName),
		SubItemStatus:     lookupString(fields, aliasSubItemStatus),
		Requestor:         lookupString(fields, aliasRequestor),
		RequestorID:       lookupString(fields, aliasRequestorID),
		Department:        lookupString(fields, aliasDepartment),
		TaggedDepartments: lookupStrings(fields, aliasTagged),
		Schedule:          lookupString(fields, aliasSchedule),
		Location:          lookupString(fields, aliasLocation),
		Actor:             lookupString(fields, aliasActor),
		Timestamp:         lookupTime(fields, aliasTimestamp),
		Fields:            fields,
	}
	if v, ok := fields["subItem"].(bool); ok {
		evt.SubItem = v
	}
	if evt.Schedule == "" {
		evt.Schedule = strings.TrimSpace(strings.Join(nonEmpty(
			lookupString(fields, []string{"startDate", "start_date"}),
			lookupString(fields, []string{"startTime", "start_time"}),
		), " "))
	}
	return evt
}

func unwrapEnvelope(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	for _, key := range envelopeKeys {
		inner, ok := fields[key].(map[string]any)
		if !ok {
			continue
		}
		merged := make(map[string]any, len(inner)+2)
		for k, v := range inner {
			merged[k] = v
		}
		// envelope metadata only fills gaps
		for _, k := range []string{"type", "timestamp"} {
			if _, exists := merged[k]; !exists {
				if v, ok := fields[k]; ok {
					merged[k] = v
				}
			}
		}
		return merged
	}
	return fields
}

func lookupString(fields map[string]any, aliases []string) string {
	for _, key := range aliases {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		var value string
		switch v := raw.(type) {
		case string:
			value = v
		case float64:
			if v == math.Trunc(v) {
				value = strconv.FormatInt(int64(v), 10)
			} else {
				value = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case bool, int, int64:
			value = fmt.Sprint(v)
		default:
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func lookupStrings(fields map[string]any, aliases []string) []string {
	for _, key := range aliases {
		switch v := fields[key].(type) {
		case []string:
			if out := nonEmpty(v...); len(out) > 0 {
				return out
			}
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					items = append(items, s)
				}
			}
			if out := nonEmpty(items...); len(out) > 0 {
				return out
			}
		case string:
			if out := nonEmpty(strings.Split(v, ",")...); len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func lookupTime(fields map[string]any, aliases []string) time.Time {
	for _, key := range aliases {
		switch v := fields[key].(type) {
		case string:
			if ts, ok := parseTime(v); ok {
				return ts
			}
		case float64:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC()
			}
		case int64:
			if v > 0 {
				return time.UnixMilli(v).UTC()
			}
		case time.Time:
			if !v.IsZero() {
				return v.UTC()
			}
		}
	}
	return time.Time{}
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
