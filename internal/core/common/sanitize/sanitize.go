// Package sanitize strips HTML from user-supplied strings before they are
// validated and persisted, so stored values can be echoed back safely.
package sanitize

import "github.com/microcosm-cc/bluemonday"

var policy = bluemonday.StrictPolicy()

// String removes any markup from value.
func String(value string) string {
	return policy.Sanitize(value)
}

// StringPtr sanitizes an optional string in place, preserving nil.
func StringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	clean := policy.Sanitize(*value)
	return &clean
}
