package fanout

import (
	"fmt"
	"strings"

	"github.com/resqlink/resqlink/core/model"
)

// ComposeMessage renders the SMS text for an alert: requester name, alert
// type, the optional free-text note and a map link built from the raw
// coordinates.
func ComposeMessage(a model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EMERGENCY: %s needs help! Type: %s.", a.RequesterName, a.Type)
	if msg := strings.TrimSpace(a.Message); msg != "" {
		fmt.Fprintf(&b, " %s.", msg)
	}
	fmt.Fprintf(&b, " Location: https://maps.google.com/?q=%.6f,%.6f", a.Location.Latitude, a.Location.Longitude)
	if a.RequesterPhone != "" {
		fmt.Fprintf(&b, " Call: %s", a.RequesterPhone)
	}
	return b.String()
}

// SplitSegments cuts text into chunks of at most limit runes. A text within
// the limit comes back as a single segment.
func SplitSegments(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	parts := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
