package enum

import "strings"

// MessageCategory is the kind of activity a message represents.
type MessageCategory string

const (
	MessageCategoryDiscussion   MessageCategory = "discussion"
	MessageCategoryQuestion     MessageCategory = "question"
	MessageCategoryAnnouncement MessageCategory = "announcement"
	MessageCategoryCasual       MessageCategory = "casual"
	MessageCategorySupport      MessageCategory = "support"
	MessageCategorySpam         MessageCategory = "spam"
)

// MessageCategories lists every category in prompt order.
var MessageCategories = []MessageCategory{
	MessageCategoryDiscussion,
	MessageCategoryQuestion,
	MessageCategoryAnnouncement,
	MessageCategoryCasual,
	MessageCategorySupport,
	MessageCategorySpam,
}

// ParseMessageCategory maps s to a category, falling back to casual.
func ParseMessageCategory(s string) MessageCategory {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range MessageCategories {
		if string(c) == s {
			return c
		}
	}
	return MessageCategoryCasual
}
