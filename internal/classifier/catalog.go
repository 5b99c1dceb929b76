package classifier

import (
	i18n "github.com/goliatone/go-i18n"
)

// Message keys used by the classifier.
const (
	keyStatusTitle    = "notification.status.%s.title"
	keyStatusBody     = "notification.status.%s.body.%s"
	keyNewTitle       = "notification.new.title.%s"
	keyNewBody        = "notification.new.body.%s"
	keySubItemTitle   = "notification.sub_item.title"
	keySubItemBody    = "notification.sub_item.body"
	keyLineActor      = "notification.line.actor"
	keyLineDepartment = "notification.line.department"
	keyLineSchedule   = "notification.line.schedule"
	keyLineLocation   = "notification.line.location"
	keyFallbackTitle  = "notification.fallback.title"
	keySubItemUnnamed = "notification.sub_item.unnamed"
)

// Translations returns the default English catalog for notification copy.
func Translations() i18n.Translations {
	return i18n.Translations{
		"en": newCatalog("en", map[string]string{
			"notification.status.approved.title":          "Event Approved! 🎉",
			"notification.status.rejected.title":          "Event Rejected",
			"notification.status.cancelled.title":         "Event Cancelled",
			"notification.status.approved.body.owner":     `Your event "%s" has been approved.`,
			"notification.status.rejected.body.owner":     `Your event "%s" has been rejected.`,
			"notification.status.cancelled.body.owner":    `Your event "%s" has been cancelled.`,
			"notification.status.approved.body.watching":  `The event "%s" your department is tagged in has been approved.`,
			"notification.status.rejected.body.watching":  `The event "%s" your department is tagged in has been rejected.`,
			"notification.status.cancelled.body.watching": `The event "%s" your department is tagged in has been cancelled.`,
			"notification.status.approved.body.generic":   `The event "%s" has been approved.`,
			"notification.status.rejected.body.generic":   `The event "%s" has been rejected.`,
			"notification.status.cancelled.body.generic":  `The event "%s" has been cancelled.`,
			"notification.new.title.owner":                "Event Request Submitted",
			"notification.new.title.watching":             "📢 Department Notification",
			"notification.new.title.generic":              "New Notification",
			"notification.new.body.owner":                 `Your event request "%s" has been submitted for review.`,
			"notification.new.body.watching":              `Your department has been tagged in "%s" by %s.`,
			"notification.new.body.generic":               `A new event "%s" has been created.`,
			"notification.sub_item.title":                 "Event Update",
			"notification.sub_item.body":                  `%s for "%s" is now %s.`,
			"notification.sub_item.unnamed":               "An item",
			"notification.line.actor":                     "By: %s",
			"notification.line.department":                "Department: %s",
			"notification.line.schedule":                  "Schedule: %s",
			"notification.line.location":                  "Location: %s",
			"notification.fallback.title":                 "Notification",
		}),
	}
}

func newCatalog(locale string, entries map[string]string) *i18n.TranslationCatalog {
	catalog := &i18n.TranslationCatalog{
		Locale:   i18n.Locale{Code: locale},
		Messages: make(map[string]i18n.Message),
	}
	for key, template := range entries {
		msg := i18n.Message{}
		msg.SetContent(template)
		catalog.Messages[key] = msg
	}
	return catalog
}
