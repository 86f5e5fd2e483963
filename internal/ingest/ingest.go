// Package ingest loads note files from disk and turns them into index
// documents. Markdown files contribute YAML front matter metadata and a
// plain-text rendering of their body; text files are indexed as-is.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/index"
)

// Options configures a corpus load.
type Options struct {
	// Root is the project root. Relative Dirs entries resolve against it
	// and doc IDs are paths relative to it. Defaults to ".".
	Root string

	// Dirs are the directories to scan. Missing directories are skipped.
	Dirs []string

	// Exclude lists glob patterns to skip (e.g. "**/drafts/**").
	// Dot-directories are always skipped.
	Exclude []string

	// Workers bounds concurrent file loads. Defaults to runtime.NumCPU().
	Workers int
}

// Ingester discovers and loads indexable files.
type Ingester struct {
	opts Options
	excl *Excluder
	md   goldmark.Markdown
}

// New creates an Ingester. The underlying markdown parser is shared
// across concurrent loads; goldmark keeps per-parse state in the parse
// context, so this is safe.
func New(opts Options) *Ingester {
	if opts.Root == "" {
		opts.Root = "."
	}
	return &Ingester{
		opts: opts,
		excl: NewExcluder(opts.Exclude),
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Meta is the YAML front matter recognized at the top of a markdown file.
type Meta struct {
	Title string  `yaml:"title"`
	Date  string  `yaml:"date"`
	Tags  tagList `yaml:"tags"`
	Slug  string  `yaml:"slug"`
	Href  string  `yaml:"href"`
}

// tagList accepts either a YAML sequence or a comma-separated scalar,
// both of which appear in the wild ("tags: [a, b]" vs "tags: a, b").
type tagList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *tagList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		var tags []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
		*t = tags
		return nil
	case yaml.SequenceNode:
		var tags []string
		if err := value.Decode(&tags); err != nil {
			return err
		}
		*t = tags
		return nil
	default:
		return fmt.Errorf("tags: unexpected YAML node kind %v", value.Kind)
	}
}

// fileEntry is one discovered file: absolute path plus the slash path
// used for its doc ID.
type fileEntry struct {
	abs string
	rel string
}

// Load discovers and loads all indexable files under the configured
// directories. Files that cannot be read or parsed are logged and
// skipped. The returned corpus is sorted by relative path, so repeated
// loads of the same tree produce the same order.
func (in *Ingester) Load(ctx context.Context) ([]index.Doc, error) {
	start := time.Now()

	files, err := in.discover(ctx)
	if err != nil {
		return nil, err
	}

	loaded := make([]*index.Doc, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers())

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			doc, err := in.loadFile(f)
			if err != nil {
				slog.Warn("ingest_file_skipped",
					slog.String("path", f.rel),
					slog.String("error", err.Error()))
				return nil
			}
			loaded[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]index.Doc, 0, len(loaded))
	for _, d := range loaded {
		if d != nil {
			docs = append(docs, *d)
		}
	}

	slog.Debug("ingest_complete",
		slog.Int("files", len(files)),
		slog.Int("docs", len(docs)),
		slog.Duration("duration", time.Since(start)))

	return docs, nil
}

func (in *Ingester) workers() int {
	if in.opts.Workers > 0 {
		return in.opts.Workers
	}
	return runtime.NumCPU()
}

// discover walks the configured directories and collects indexable
// files, sorted by relative path. Directories listed more than once
// (or nested in each other) contribute each file only once.
func (in *Ingester) discover(ctx context.Context) ([]fileEntry, error) {
	root, err := filepath.Abs(in.opts.Root)
	if err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeIngestFailed, err)
	}

	seen := make(map[string]struct{})
	var files []fileEntry

	for _, dir := range in.opts.Dirs {
		base := dir
		if !filepath.IsAbs(base) {
			base = filepath.Join(root, base)
		}
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			slog.Debug("ingest_dir_missing", slog.String("dir", dir))
			continue
		}

		walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err != nil {
				return nil // skip entries we cannot access
			}

			rel := relPath(root, base, p)

			if d.IsDir() {
				if p == base {
					return nil
				}
				if strings.HasPrefix(d.Name(), ".") || in.excl.Dir(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if !IndexableFile(p) {
				return nil
			}
			if in.excl.File(rel) {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}
			seen[p] = struct{}{}
			files = append(files, fileEntry{abs: p, rel: rel})
			return nil
		})
		if walkErr != nil {
			if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
				return nil, walkErr
			}
			return nil, dexerrors.Wrap(dexerrors.ErrCodeIngestFailed, walkErr)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// relPath yields the slash path used for doc IDs: relative to the
// project root when the file lives under it, otherwise relative to the
// scanned directory prefixed with its base name.
func relPath(root, base, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return filepath.Base(p)
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(base), rel))
}

// IndexableFile reports whether the file extension is one we ingest.
func IndexableFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// Excluder matches slash-separated relative paths against a set of
// exclude patterns. The watcher shares it so a path skipped during
// ingest is also skipped when it changes on disk.
type Excluder struct {
	patterns []string
}

// NewExcluder creates an Excluder over the given glob patterns.
func NewExcluder(patterns []string) *Excluder {
	return &Excluder{patterns: patterns}
}

// Dir reports whether a directory path is excluded.
func (e *Excluder) Dir(rel string) bool {
	for _, pattern := range e.patterns {
		if matchDirPattern(rel, pattern) {
			return true
		}
	}
	return false
}

// File reports whether a file path is excluded.
func (e *Excluder) File(rel string) bool {
	for _, pattern := range e.patterns {
		if matchFilePattern(rel, pattern) {
			return true
		}
	}
	return false
}

// matchDirPattern checks a slash-separated directory path against an
// exclude pattern. "**/name/**" matches the component anywhere,
// "name/**" anchors at the scan root, and a bare name matches the
// directory and everything under it.
func matchDirPattern(rel, pattern string) bool {
	if strings.HasPrefix(pattern, "**/") {
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		for _, part := range strings.Split(rel, "/") {
			if part == name {
				return true
			}
		}
		return false
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return rel == prefix || strings.HasPrefix(rel, prefix+"/")
	}
	return rel == pattern || strings.HasPrefix(rel, pattern+"/")
}

// matchFilePattern checks a slash-separated file path against an
// exclude pattern. Directory patterns match files beneath the excluded
// directory; other patterns glob against the base name and full path.
func matchFilePattern(rel, pattern string) bool {
	base := path.Base(rel)

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasSuffix(suffix, "/**") {
			return matchDirPattern(rel, pattern)
		}
		if strings.HasPrefix(suffix, "*.") {
			return strings.HasSuffix(base, strings.TrimPrefix(suffix, "*"))
		}
		matched, err := path.Match(suffix, base)
		return err == nil && matched
	}
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(rel, prefix+"/")
	}

	if matched, err := path.Match(pattern, base); err == nil && matched {
		return true
	}
	matched, err := path.Match(pattern, rel)
	return err == nil && matched
}

// loadFile reads one file and converts it to an index document.
func (in *Ingester) loadFile(f fileEntry) (*index.Doc, error) {
	raw, err := os.ReadFile(f.abs)
	if err != nil {
		return nil, err
	}

	id := docID(f.rel)
	switch strings.ToLower(filepath.Ext(f.rel)) {
	case ".md", ".markdown":
		return in.markdownDoc(id, f.rel, raw), nil
	default:
		return textDoc(id, f.rel, raw), nil
	}
}

// docID strips the extension from a slash-separated relative path.
func docID(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// frontMatterPattern matches a leading "---" fenced YAML block.
var frontMatterPattern = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)

// splitFrontMatter separates a leading YAML front matter block from the
// markdown body. meta is nil when no front matter is present.
func splitFrontMatter(raw []byte) (meta, body []byte) {
	m := frontMatterPattern.FindSubmatchIndex(raw)
	if m == nil {
		return nil, raw
	}
	return raw[m[2]:m[3]], raw[m[1]:]
}

// markdownDoc builds a document from a markdown file: front matter
// metadata plus the body rendered to plain text. Invalid front matter
// is logged and dropped rather than failing the load.
func (in *Ingester) markdownDoc(id, rel string, raw []byte) *index.Doc {
	metaRaw, body := splitFrontMatter(raw)

	var meta Meta
	if len(metaRaw) > 0 {
		if err := yaml.Unmarshal(metaRaw, &meta); err != nil {
			slog.Warn("ingest_front_matter_invalid",
				slog.String("path", rel),
				slog.String("error", err.Error()))
			meta = Meta{}
		}
	}

	plain, firstHeading := in.renderText(body)

	title := meta.Title
	if title == "" {
		title = firstHeading
	}
	if title == "" {
		title = titleFromFilename(rel)
	}

	return &index.Doc{
		ID:    id,
		Title: title,
		Href:  hrefFor(id, meta),
		Date:  meta.Date,
		Tags:  []string(meta.Tags),
		Body:  plain,
	}
}

// textDoc builds a document from a plain text file.
func textDoc(id, rel string, raw []byte) *index.Doc {
	return &index.Doc{
		ID:    id,
		Title: titleFromFilename(rel),
		Href:  "/" + id,
		Body:  strings.TrimSpace(string(raw)),
	}
}

// hrefFor picks the link target: explicit href wins, then slug, then
// the doc ID.
func hrefFor(id string, meta Meta) string {
	switch {
	case meta.Href != "":
		return meta.Href
	case meta.Slug != "":
		return "/" + strings.Trim(meta.Slug, "/")
	default:
		return "/" + id
	}
}

// Titleize turns a slug-like name into a display title: separators
// spaced, words capitalized. Names with no word characters come back
// unchanged.
func Titleize(name string) string {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(spaced)
	if len(words) == 0 {
		return name
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// titleFromFilename derives a display title from a file name, extension
// stripped.
func titleFromFilename(rel string) string {
	name := path.Base(rel)
	name = strings.TrimSuffix(name, path.Ext(name))
	if t := Titleize(name); t != "" {
		return t
	}
	return path.Base(rel)
}

// blankRuns collapses runs of three or more newlines down to a single
// blank line.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// renderText walks the markdown AST and emits plain text: headings and
// paragraphs separated by blank lines, list items on their own lines,
// code block contents verbatim, inline markup stripped. It also
// returns the text of the first level-1 heading for title fallback.
func (in *Ingester) renderText(src []byte) (plain, firstHeading string) {
	root := in.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading:
				b.WriteString("\n\n")
			case *ast.TextBlock:
				b.WriteString("\n")
			case *extast.TableCell:
				b.WriteString(" ")
			case *extast.TableRow, *extast.TableHeader:
				b.WriteString("\n")
			case *extast.Table:
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && firstHeading == "" {
				firstHeading = nodeText(node, src)
			}
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.URL(src))
		case *ast.CodeBlock:
			writeCodeLines(&b, node, src)
		case *ast.FencedCodeBlock:
			writeCodeLines(&b, node, src)
		}
		return ast.WalkContinue, nil
	})

	plain = blankRuns.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(plain), firstHeading
}

// writeCodeLines copies a code block's source lines, followed by a
// separating newline.
func writeCodeLines(b *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	b.WriteString("\n")
}

// nodeText collects the plain text of a node's subtree.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
