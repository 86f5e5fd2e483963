package ui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/notedex/notedex/internal/index"
)

// SearchRenderer writes one-shot search results to a terminal or pipe.
type SearchRenderer struct {
	out    io.Writer
	styles Styles
}

// NewSearchRenderer creates a search result renderer. Pass noColor=true
// for pipes and NO_COLOR terminals.
func NewSearchRenderer(out io.Writer, noColor bool) *SearchRenderer {
	return &SearchRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render writes results as a numbered list: title and score, then the
// chunk location with date and tags, then the snippet.
func (r *SearchRenderer) Render(query string, results []index.Result) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(r.out, "No results for %q\n", query)
		return nil
	}

	noun := "results"
	if len(results) == 1 {
		noun = "result"
	}
	header := fmt.Sprintf("%d %s for %q", len(results), noun, query)
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render(header))

	for i, res := range results {
		_, _ = fmt.Fprintf(r.out, "%s %s  %s\n",
			r.styles.Label.Render(fmt.Sprintf("%d.", i+1)),
			r.styles.Selected.Render(resultTitle(res)),
			r.styles.Score.Render(fmt.Sprintf("%.2f", res.Score)))

		meta := res.Chunk.Href
		if res.Chunk.Date != "" {
			meta += "  " + res.Chunk.Date
		}
		_, _ = fmt.Fprintf(r.out, "   %s", r.styles.Dim.Render(meta))
		for _, tag := range res.Chunk.Tags {
			_, _ = fmt.Fprintf(r.out, " %s", r.styles.Tag.Render("#"+tag))
		}
		_, _ = fmt.Fprintln(r.out)

		if res.Chunk.Snippet != "" {
			_, _ = fmt.Fprintf(r.out, "   %s\n", res.Chunk.Snippet)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	return nil
}

// RenderJSON writes results as indented JSON. Empty result sets encode
// as [] rather than null so consumers always see an array.
func (r *SearchRenderer) RenderJSON(results []index.Result) error {
	if results == nil {
		results = []index.Result{}
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// resultTitle returns the chunk title, falling back to the chunk ID for
// untitled notes.
func resultTitle(res index.Result) string {
	if res.Chunk.Title != "" {
		return res.Chunk.Title
	}
	return res.Chunk.ID
}
