package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	masker "github.com/goliatone/go-masker"

	"github.com/goliatone/go-live-notifications/pkg/domain"
)

var (
	idClaims         = []string{"sub", "user_id", "userId", "uid"}
	nameClaims       = []string{"name", "display_name", "preferred_username", "username"}
	departmentClaims = []string{"department", "dept"}
)

// FromRecord converts a session record into a viewer identity. Fields missing
// on the record are read from the unverified token claims. A record with no
// resolvable viewer id yields the unknown viewer.
func FromRecord(record *domain.SessionRecord) domain.ViewerIdentity {
	if record == nil {
		return domain.Unknown()
	}
	identity := domain.ViewerIdentity{
		ViewerID:    strings.TrimSpace(record.ViewerID),
		DisplayName: strings.TrimSpace(record.DisplayName),
		Department:  strings.TrimSpace(record.Department),
	}
	if identity.ViewerID == "" || identity.DisplayName == "" || identity.Department == "" {
		if claims := TokenClaims(record.Token); claims != nil {
			if identity.ViewerID == "" {
				identity.ViewerID = claimString(claims, idClaims)
			}
			if identity.DisplayName == "" {
				identity.DisplayName = claimString(claims, nameClaims)
			}
			if identity.Department == "" {
				identity.Department = claimString(claims, departmentClaims)
			}
		}
	}
	if identity.ViewerID == "" {
		return domain.Unknown()
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.ViewerID
	}
	return identity
}

// TokenClaims parses a JWT without verifying its signature. The token only
// describes who is logged in locally; the push transport authenticates it.
func TokenClaims(token string) jwt.MapClaims {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// MaskToken hides all but the ends of a token for logging.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(2,2)", token); err == nil {
		return masked
	}
	runes := []rune(token)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

func claimString(claims jwt.MapClaims, keys []string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}
