package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// noteMIMEType is the MIME type for note resources; notes are
// markdown-flavored text.
const noteMIMEType = "text/markdown"

// noteURIScheme prefixes note resource URIs.
const noteURIScheme = "note://"

// RegisterNoteResources registers each stored note as an MCP resource.
// Call after the server is created and before serving. Handlers read
// the store at request time, so bodies stay current; notes created
// after registration appear on the next registration pass.
func (s *Server) RegisterNoteResources(ctx context.Context) error {
	if s.store == nil {
		s.logger.Debug("note resources skipped, no store configured")
		return nil
	}

	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	for _, n := range notes {
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        n.Key,
				URI:         noteURIScheme + n.Key,
				Description: fmt.Sprintf("note %s (%s)", n.Key, humanSize(int64(len(n.Body)))),
				MIMEType:    noteMIMEType,
			},
			s.makeNoteHandler(n.Key),
		)
	}

	s.logger.Info("mcp_resources_registered", "count", len(notes))
	return nil
}

// makeNoteHandler creates a read handler for a specific note key.
func (s *Server) makeNoteHandler(key string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		note, err := s.store.GetNote(ctx, key)
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      noteURIScheme + key,
					MIMEType: noteMIMEType,
					Text:     note.Body,
				},
			},
		}, nil
	}
}

// ListResources returns the stored notes as resource descriptors.
func (s *Server) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	if s.store == nil {
		return []ResourceInfo{}, nil
	}

	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	resources := make([]ResourceInfo, 0, len(notes))
	for _, n := range notes {
		resources = append(resources, ResourceInfo{
			URI:      noteURIScheme + n.Key,
			Name:     n.Key,
			MIMEType: noteMIMEType,
		})
	}

	return resources, nil
}

// ReadResource reads a note resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	if !strings.HasPrefix(uri, noteURIScheme) {
		return nil, NewResourceNotFoundError(uri)
	}
	if s.store == nil {
		return nil, NewResourceNotFoundError(uri)
	}

	key := strings.TrimPrefix(uri, noteURIScheme)
	note, err := s.store.GetNote(ctx, key)
	if err != nil {
		return nil, MapError(err)
	}

	return &ResourceContent{
		URI:      uri,
		Content:  note.Body,
		MIMEType: noteMIMEType,
	}, nil
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
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
