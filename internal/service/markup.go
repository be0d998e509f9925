package service

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// containsMarkup reports whether the policy would drop anything from raw.
// Entity escaping alone does not count, so "R&D" and "a < b" pass.
func containsMarkup(policy *bluemonday.Policy, raw string) bool {
	return html.UnescapeString(policy.Sanitize(raw)) != raw
}
