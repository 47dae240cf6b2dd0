package crm

import (
	"regexp"
	"strings"
)

// NamePlaceholder is replaced by the business's first name in a text template.
const NamePlaceholder = "[NAME]"

var firstNamePattern = regexp.MustCompile(`^[a-zA-Z'\- ]*`)

// FirstName returns the leading run of letters, spaces, apostrophes and
// hyphens in a business name, trimmed. "Joe's Plumbing & Heating" gives
// "Joe's Plumbing".
func FirstName(businessName string) string {
	return strings.TrimSpace(firstNamePattern.FindString(businessName))
}

// ComposeText fills the first placeholder in template with the business's
// first name.
func ComposeText(template, businessName string) string {
	return strings.Replace(template, NamePlaceholder, FirstName(businessName), 1)
}
