package configtest

import (
	"fmt"
	"io"
	"strings"
)

// PrintPreview writes a human-readable preview to w.
func PrintPreview(w io.Writer, r *PreviewResult) {
	fmt.Fprintf(w, "\n=== Tenant: %s ===\n", r.TenantID)
	fmt.Fprintf(w, "URL: %s\n", r.PageURL)
	fmt.Fprintf(w, "Title: %s\n", r.Title)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meta tags:")
	for _, tag := range r.Tags {
		fmt.Fprintf(w, "  - %s: %s\n", tag.Key, tag.Content)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replaced: %s\n", list(r.Replaced))
	fmt.Fprintf(w, "Inserted: %s\n", list(r.Inserted))
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

func list(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
