package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo contains index and vault health information.
type StatusInfo struct {
	Root    string    `json:"root"`
	Docs    int       `json:"docs"`
	Chunks  int       `json:"chunks"`
	Terms   int       `json:"terms"`
	BuiltAt time.Time `json:"built_at"`

	CapsulePath string `json:"capsule_path,omitempty"`
	CapsuleSize int64  `json:"capsule_size,omitempty"`

	StoreEnabled bool `json:"store_enabled"`
	Notes        int  `json:"notes"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to the terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("notedex: "+info.Root))

	if info.BuiltAt.IsZero() {
		_, _ = fmt.Fprintln(r.out, "  No index built yet. Run `notedex index` first.")
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  Documents: %d\n", info.Docs)
	_, _ = fmt.Fprintf(r.out, "  Chunks:    %d\n", info.Chunks)
	_, _ = fmt.Fprintf(r.out, "  Terms:     %d\n", info.Terms)
	_, _ = fmt.Fprintf(r.out, "  Built:     %s\n", formatTime(info.BuiltAt))
	_, _ = fmt.Fprintln(r.out)

	if info.CapsulePath != "" {
		_, _ = fmt.Fprintln(r.out, "  Capsule:")
		_, _ = fmt.Fprintf(r.out, "    Path: %s\n", info.CapsulePath)
		if info.CapsuleSize > 0 {
			_, _ = fmt.Fprintf(r.out, "    Size: %s\n", FormatBytes(info.CapsuleSize))
		}
		_, _ = fmt.Fprintln(r.out)
	}

	if info.StoreEnabled {
		noun := "notes"
		if info.Notes == 1 {
			noun = "note"
		}
		count := fmt.Sprintf("%d %s", info.Notes, noun)
		_, _ = fmt.Fprintf(r.out, "  Store: %s\n", r.styles.Success.Render(count))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Store: %s\n", r.styles.Dim.Render("disabled"))
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
