package index

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// paragraphBreak matches one or more blank lines, where a line containing
// only whitespace counts as blank.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Chunk splits a document body into search chunks between MinChunkLen and
// MaxChunkLen bytes. Paragraphs are accumulated up to MaxChunkLen; a single
// paragraph longer than MaxChunkLen is hard-split into MaxChunkLen slices;
// afterwards any chunk shorter than MinChunkLen is folded into its
// predecessor. Chunks come back in document order. An empty body yields
// no chunks.
func Chunk(body string) []string {
	return chunkText(body, MinChunkLen, MaxChunkLen)
}

func chunkText(body string, minLen, maxLen int) []string {
	paragraphs := splitParagraphs(body)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > maxLen {
			// Oversized paragraph: flush the buffer, then emit fixed slices.
			flush()
			chunks = append(chunks, hardSplit(para, maxLen)...)
			continue
		}
		if buf.Len() == 0 {
			buf.WriteString(para)
			continue
		}
		if buf.Len()+2+len(para) <= maxLen {
			buf.WriteString("\n\n")
			buf.WriteString(para)
		} else {
			flush()
			buf.WriteString(para)
		}
	}
	flush()

	return mergeForward(chunks, minLen)
}

// splitParagraphs splits on blank lines and trims each paragraph.
// Whitespace-only paragraphs are dropped.
func splitParagraphs(body string) []string {
	parts := paragraphBreak.Split(body, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// hardSplit cuts an oversized paragraph into consecutive slices of at most
// maxLen bytes, backing cuts up to rune boundaries so slices stay valid UTF-8.
func hardSplit(para string, maxLen int) []string {
	var slices []string
	for len(para) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(para[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLen
		}
		slices = append(slices, para[:cut])
		para = para[cut:]
	}
	if len(para) > 0 {
		slices = append(slices, para)
	}
	return slices
}

// mergeForward folds chunks shorter than minLen into the previous chunk,
// never into the next. A first chunk with no predecessor stays as is.
func mergeForward(chunks []string, minLen int) []string {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c) < minLen && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + "\n\n" + c
		} else {
			out = append(out, c)
		}
	}
	return out
}

// Snippet returns the first limit runes of text with whitespace runs
// collapsed to single spaces.
func Snippet(text string, limit int) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	runes := []rune(collapsed)
	if len(runes) <= limit {
		return collapsed
	}
	return strings.TrimRight(string(runes[:limit]), " ")
}

var whitespaceRun = regexp.MustCompile(`\s+`)
