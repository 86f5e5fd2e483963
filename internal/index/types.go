// Package index implements the search core for notedex: tokenization,
// paragraph chunking, TF-IDF sparse vectors, and cosine-scored retrieval
// over an immutable in-memory index.
//
// An Index is built once from a corpus of documents and never mutated.
// Consumers that need a "current" index swap whole values atomically.
package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire format and sizing constants.
const (
	// Version is the index wire format version.
	Version = 1

	// MinChunkLen is the minimum chunk size in bytes. Chunks shorter than
	// this are folded into their predecessor.
	MinChunkLen = 600

	// MaxChunkLen is the maximum chunk size in bytes for the accumulate
	// and hard-split phases.
	MaxChunkLen = 1200

	// MaxVectorTerms is the number of highest-weight terms kept per chunk.
	MaxVectorTerms = 32

	// SnippetLen is the length of the stored chunk preview, in runes.
	SnippetLen = 280

	// DefaultTopK is the result count when the caller does not specify one.
	DefaultTopK = 6
)

// Doc is a single document entering the index build.
type Doc struct {
	// ID is the stable document identifier (e.g. a slash path without extension).
	ID string

	// Title is the display title.
	Title string

	// Href is the link target for results pointing at this document.
	Href string

	// Date is the document date as written in its metadata (may be empty).
	Date string

	// Tags are free-form labels.
	Tags []string

	// Body is the full plain text to chunk and index.
	Body string
}

// TermWeight is one (term, weight) pair of a sparse chunk vector.
// It serializes as the two-element JSON array ["term", weight].
type TermWeight struct {
	Term   string
	Weight float64
}

// MarshalJSON encodes the pair as ["term", weight].
func (tw TermWeight) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{tw.Term, tw.Weight})
}

// UnmarshalJSON decodes a ["term", weight] pair, rejecting malformed shapes.
func (tw *TermWeight) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("term weight: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("term weight: expected 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &tw.Term); err != nil {
		return fmt.Errorf("term weight: term: %w", err)
	}
	if err := json.Unmarshal(raw[1], &tw.Weight); err != nil {
		return fmt.Errorf("term weight: weight: %w", err)
	}
	return nil
}

// ChunkRecord is one indexed chunk: document metadata, a short preview,
// and the truncated TF-IDF vector with its L2 norm.
type ChunkRecord struct {
	// ID is "<docID>#<ordinal>" where ordinal is the 0-based chunk
	// position within the document.
	ID string `json:"id"`

	// Href is the link target inherited from the document.
	Href string `json:"href"`

	// Title is the document title.
	Title string `json:"title"`

	// Date is the document date (may be empty).
	Date string `json:"date,omitempty"`

	// Tags are the document tags.
	Tags []string `json:"tags,omitempty"`

	// Snippet is the chunk's first ~280 characters, whitespace-collapsed.
	Snippet string `json:"snippet"`

	// Vector holds up to MaxVectorTerms (term, weight) pairs sorted by
	// weight descending.
	Vector []TermWeight `json:"vector"`

	// Norm is the L2 norm over the kept weights only.
	Norm float64 `json:"norm"`
}

// Index is the complete immutable search index.
type Index struct {
	// Version is the wire format version (currently 1).
	Version int `json:"version"`

	// BuiltAt is the build timestamp.
	BuiltAt time.Time `json:"builtAt"`

	// IDF maps terms to inverse document frequency. Only terms that
	// survived vector truncation in at least one chunk appear here.
	IDF map[string]float64 `json:"idf"`

	// Chunks are the indexed chunks in corpus order.
	Chunks []ChunkRecord `json:"chunks"`
}

// Result is one search hit.
type Result struct {
	Score float64     `json:"score"`
	Chunk ChunkRecord `json:"chunk"`
}

// Validate checks the structural invariants of a decoded index.
// It returns a descriptive error for the first violation found.
func (idx *Index) Validate() error {
	if idx.Version != Version {
		return fmt.Errorf("unsupported index version %d (want %d)", idx.Version, Version)
	}
	for i := range idx.Chunks {
		c := &idx.Chunks[i]
		if c.ID == "" {
			return fmt.Errorf("chunk %d: empty id", i)
		}
		if len(c.Vector) > MaxVectorTerms {
			return fmt.Errorf("chunk %q: vector has %d terms (max %d)", c.ID, len(c.Vector), MaxVectorTerms)
		}
		if c.Norm < 0 {
			return fmt.Errorf("chunk %q: negative norm", c.ID)
		}
		for _, tw := range c.Vector {
			if tw.Term == "" {
				return fmt.Errorf("chunk %q: empty term in vector", c.ID)
			}
			if _, ok := idx.IDF[tw.Term]; !ok {
				return fmt.Errorf("chunk %q: term %q missing from idf map", c.ID, tw.Term)
			}
		}
	}
	return nil
}

// DocCount returns the number of distinct documents behind the chunks.
func (idx *Index) DocCount() int {
	seen := make(map[string]struct{}, len(idx.Chunks))
	for i := range idx.Chunks {
		id := idx.Chunks[i].ID
		if j := strings.LastIndex(id, "#"); j >= 0 {
			id = id[:j]
		}
		seen[id] = struct{}{}
	}
	return len(seen)
}

// TermCount returns the size of the global IDF vocabulary.
func (idx *Index) TermCount() int {
	return len(idx.IDF)
}
