package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	i18n "github.com/goliatone/go-i18n"
	"github.com/jaytaylor/html2text"

	"github.com/goliatone/go-live-notifications/pkg/domain"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
)

var (
	errTranslatorRequired = errors.New("classifier: translator is required")

	statusPhrase = regexp.MustCompile(`(?i)has been (approved|rejected|cancel+ed)`)
	htmlTag      = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

// Dependencies configure the classifier.
type Dependencies struct {
	Translator i18n.Translator
	Locale     string
	Logger     logger.Logger
}

// Classifier turns raw push payloads into notification descriptors.
type Classifier struct {
	translator i18n.Translator
	locale     string
	logger     logger.Logger
}

// New builds a classifier over the provided translator.
func New(deps Dependencies) (*Classifier, error) {
	if deps.Translator == nil {
		return nil, errTranslatorRequired
	}
	if deps.Locale == "" {
		deps.Locale = "en"
	}
	return &Classifier{
		translator: deps.Translator,
		locale:     deps.Locale,
		logger:     logger.OrNop(deps.Logger),
	}, nil
}

// NewDefault builds a classifier over the built-in English catalog.
func NewDefault(locale string, lgr logger.Logger) (*Classifier, error) {
	translator, err := i18n.NewSimpleTranslator(
		i18n.NewStaticStore(Translations()),
		i18n.WithTranslatorDefaultLocale("en"),
	)
	if err != nil {
		return nil, fmt.Errorf("classifier: build translator: %w", err)
	}
	return New(Dependencies{Translator: translator, Locale: locale, Logger: lgr})
}

// Classify determines kind, relationship and copy for raw as seen by viewer.
// It never fails: missing fields fall back to empty strings or "unknown".
func (c *Classifier) Classify(raw domain.RawEvent, viewer domain.ViewerIdentity) domain.NotificationDescriptor {
	message := normalizeMessage(raw.Message)
	desc := domain.NotificationDescriptor{
		SubjectEventID:    strings.TrimSpace(raw.EventID),
		SubjectEventTitle: strings.TrimSpace(raw.EventTitle),
		Requestor:         strings.TrimSpace(raw.Requestor),
		Department:        strings.TrimSpace(raw.Department),
		Schedule:          strings.TrimSpace(raw.Schedule),
		OccurredAt:        raw.Timestamp,
	}
	desc.Relationship = relationship(raw, viewer)

	eventTitle := fallback(desc.SubjectEventTitle, "unknown")

	switch {
	case isSubItemChange(raw):
		desc.Kind = domain.KindSubItemStatusChange
		desc.SubItemID = strings.TrimSpace(raw.SubItemID)
		desc.Status = normalizeStatus(firstNonEmpty(raw.SubItemStatus, raw.Status, raw.NewStatus))
		name := strings.TrimSpace(raw.SubItemName)
		if name == "" {
			name = c.text(keySubItemUnnamed)
		}
		desc.Title = c.text(keySubItemTitle)
		desc.Body = c.text(keySubItemBody, name, eventTitle, fallback(desc.Status, "unknown"))
	case entityStatus(raw, message) != "":
		desc.Kind = domain.KindEntityStatusChange
		desc.Status = entityStatus(raw, message)
		desc.Title = c.text(fmt.Sprintf(keyStatusTitle, desc.Status))
		if desc.Relationship == domain.RelationshipGeneric && message != "" {
			desc.Body = message
		} else {
			desc.Body = c.text(fmt.Sprintf(keyStatusBody, desc.Status, desc.Relationship), eventTitle)
		}
	default:
		desc.Kind = domain.KindNewEvent
		desc.Title = c.text(fmt.Sprintf(keyNewTitle, desc.Relationship))
		switch {
		case desc.Relationship == domain.RelationshipWatching:
			desc.Body = c.text(fmt.Sprintf(keyNewBody, desc.Relationship), eventTitle, fallback(desc.Requestor, "unknown"))
		case desc.Relationship == domain.RelationshipGeneric && message != "":
			desc.Body = message
		default:
			desc.Body = c.text(fmt.Sprintf(keyNewBody, desc.Relationship), eventTitle)
		}
	}

	if lines := c.extraLines(raw); len(lines) > 0 {
		desc.Body = strings.Join(append([]string{desc.Body}, lines...), "\n")
	}
	if desc.Title == "" {
		desc.Title = c.text(keyFallbackTitle)
	}
	return desc
}

func (c *Classifier) extraLines(raw domain.RawEvent) []string {
	actor := strings.TrimSpace(raw.Actor)
	department := strings.TrimSpace(raw.Department)
	schedule := strings.TrimSpace(raw.Schedule)
	location := strings.TrimSpace(raw.Location)
	if actor == "" || (department == "" && schedule == "" && location == "") {
		return nil
	}
	lines := []string{c.text(keyLineActor, actor)}
	if department != "" {
		lines = append(lines, c.text(keyLineDepartment, department))
	}
	if schedule != "" {
		lines = append(lines, c.text(keyLineSchedule, schedule))
	}
	if location != "" {
		lines = append(lines, c.text(keyLineLocation, location))
	}
	return lines
}

func (c *Classifier) text(key string, args ...any) string {
	out, err := c.translator.Translate(c.locale, key, args...)
	if err != nil {
		c.logger.Debug("classifier: missing copy",
			logger.F("key", key),
			logger.F("locale", c.locale),
			logger.F("error", err),
		)
		return ""
	}
	return out
}

func relationship(raw domain.RawEvent, viewer domain.ViewerIdentity) domain.Relationship {
	if isOwner(raw, viewer) {
		return domain.RelationshipOwner
	}
	dept := strings.TrimSpace(viewer.Department)
	if dept == "" {
		return domain.RelationshipGeneric
	}
	for _, tagged := range raw.TaggedDepartments {
		if strings.EqualFold(strings.TrimSpace(tagged), dept) {
			return domain.RelationshipWatching
		}
	}
	return domain.RelationshipGeneric
}

func isOwner(raw domain.RawEvent, viewer domain.ViewerIdentity) bool {
	if name := strings.TrimSpace(viewer.DisplayName); name != "" && strings.TrimSpace(raw.Requestor) == name {
		return true
	}
	if id := strings.TrimSpace(viewer.ViewerID); id != "" && strings.TrimSpace(raw.RequestorID) == id {
		return true
	}
	return false
}

func isSubItemChange(raw domain.RawEvent) bool {
	if raw.SubItem || strings.TrimSpace(raw.SubItemStatus) != "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(raw.Type)), "_status_update")
}

func entityStatus(raw domain.RawEvent, message string) string {
	status := normalizeStatus(firstNonEmpty(raw.EventStatus, raw.Status, raw.NewStatus))
	if isEntityStatus(status) {
		return status
	}
	if match := statusPhrase.FindStringSubmatch(message); len(match) == 2 {
		return normalizeStatus(match[1])
	}
	return ""
}

func isEntityStatus(status string) bool {
	switch status {
	case domain.StatusApproved, domain.StatusRejected, domain.StatusCancelled:
		return true
	}
	return false
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "canceled" {
		return domain.StatusCancelled
	}
	return status
}

func normalizeMessage(message string) string {
	message = strings.TrimSpace(message)
	if message == "" || !htmlTag.MatchString(message) {
		return message
	}
	plain, err := html2text.FromString(message, html2text.Options{OmitLinks: true})
	if err != nil {
		return message
	}
	return strings.TrimSpace(plain)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
