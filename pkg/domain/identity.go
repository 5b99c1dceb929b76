package domain

import "strings"

// UnknownViewer is the display name used when no session record is present.
const UnknownViewer = "unknown"

// ViewerIdentity describes who is looking at the notifications. It is replaced
// wholesale on login/logout, never merged field by field.
type ViewerIdentity struct {
	ViewerID    string `json:"viewer_id"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// Unknown returns the identity used when no session is available.
func Unknown() ViewerIdentity {
	return ViewerIdentity{DisplayName: UnknownViewer}
}

// IsKnown reports whether the identity came from a real session.
func (v ViewerIdentity) IsKnown() bool {
	return strings.TrimSpace(v.ViewerID) != ""
}

// Equal compares identities after trimming whitespace.
func (v ViewerIdentity) Equal(other ViewerIdentity) bool {
	return v.normalized() == other.normalized()
}

func (v ViewerIdentity) normalized() ViewerIdentity {
	return ViewerIdentity{
		ViewerID:    strings.TrimSpace(v.ViewerID),
		DisplayName: strings.TrimSpace(v.DisplayName),
		Department:  strings.TrimSpace(v.Department),
	}
}
