package console

import "strings"

// AllowList is an immutable set of email addresses permitted to hold an
// administrative session. Membership is checked before any credential or
// one-time-code exchange reaches the identity provider.
type AllowList struct {
	members map[string]struct{}
}

// NewAllowList builds an allow list from the given addresses. Addresses
// are normalized (trimmed, lowercased) at construction.
func NewAllowList(emails []string) *AllowList {
	members := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		members[NormalizeEmail(e)] = struct{}{}
	}

	return &AllowList{members: members}
}

// IsAuthorized reports whether the identity is in the allow list.
func (a *AllowList) IsAuthorized(email string) bool {
	_, ok := a.members[NormalizeEmail(email)]

	return ok
}

// Len returns the number of authorized identities.
func (a *AllowList) Len() int { return len(a.members) }

// NormalizeEmail trims whitespace and lowercases an address so that
// allow-list membership is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
