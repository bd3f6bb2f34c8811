package util

// Truncate caps s at limit runes, appending an ellipsis marker when content
// was dropped. Limits smaller than one disable truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
