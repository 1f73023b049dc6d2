package chunker

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/steven-d-pennington/kanban-context/pkg/types"
)

const (
	// MaxChunkChars is the maximum chunk size; logical units larger than this
	// are split at the nearest line boundary before the limit.
	MaxChunkChars = 2000

	// MinChunkChars avoids degenerate one-line chunks; a boundary only closes
	// a chunk once it has accumulated at least this much text.
	MinChunkChars = 80

	// maxLineChars is the minified-content cutoff. A single line longer than
	// this cannot be split at a line boundary and marks the file unsupported.
	maxLineChars = 1000
)

// languageByExt maps file extensions to the language recorded on chunks.
// Extensions absent from this map are unsupported.
var languageByExt = map[string]string{
	".go":     "go",
	".ts":     "typescript",
	".tsx":    "typescript",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".py":     "python",
	".rb":     "ruby",
	".rs":     "rust",
	".java":   "java",
	".kt":     "kotlin",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".php":    "php",
	".swift":  "swift",
	".scala":  "scala",
	".sql":    "sql",
	".sh":     "shell",
	".bash":   "shell",
	".md":     "markdown",
	".yaml":   "yaml",
	".yml":    "yaml",
	".json":   "json",
	".toml":   "toml",
	".html":   "html",
	".css":    "css",
	".scss":   "css",
	".vue":    "vue",
	".svelte": "svelte",
}

// declPrefixes mark top-level declaration starts across the supported
// languages. Used as preferred break points alongside blank lines.
var declPrefixes = []string{
	"func ", "type ", "const ", "var ", "package ",
	"class ", "def ", "fn ", "impl ", "interface ", "enum ", "struct ",
	"export ", "public ", "private ", "protected ", "async ",
	"function ", "module ", "trait ",
}

// Chunk is one bounded, line-addressable slice of a file.
type Chunk struct {
	Text      string
	StartLine int
	EndLine   int
	Language  string
}

// Chunker splits file content into bounded semantic chunks.
type Chunker struct {
	maxChars int
	minChars int
}

// New creates a Chunker with the default size bounds.
func New() *Chunker {
	return &Chunker{maxChars: MaxChunkChars, minChars: MinChunkChars}
}

// Chunk splits content into ordered chunks with dense 0-based indices implied
// by slice position. It returns types.ErrUnsupportedContent for binary,
// minified, or unrecognized-extension files. An empty file yields an empty
// slice, not an error.
func (c *Chunker) Chunk(path, content string) ([]Chunk, error) {
	lang, ok := DetectLanguage(path)
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", types.ErrUnsupportedContent, filepath.Ext(path))
	}
	if !utf8.ValidString(content) || strings.ContainsRune(content, 0) {
		return nil, fmt.Errorf("%w: binary content in %s", types.ErrUnsupportedContent, path)
	}

	lines := splitLines(content)
	if len(lines) == 0 {
		return []Chunk{}, nil
	}
	if looksMinified(lines) {
		return nil, fmt.Errorf("%w: minified content in %s", types.ErrUnsupportedContent, path)
	}

	chunks := make([]Chunk, 0)
	start := 0 // index into lines of the current chunk's first line
	size := 0  // accumulated characters of the current chunk

	flush := func(end int) {
		if end <= start {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.Join(lines[start:end], "\n"),
			StartLine: start + 1,
			EndLine:   end,
			Language:  lang,
		})
		start = end
		size = 0
	}

	for i, line := range lines {
		// A logical unit exceeding the maximum splits at the nearest line
		// boundary before the limit.
		if size > 0 && size+len(line) > c.maxChars {
			flush(i)
		}
		size += len(line) + 1

		if size < c.minChars {
			continue
		}
		if isUnitBoundary(lines, i) {
			flush(i + 1)
		}
	}

	// Trailing remainder: merge into the previous chunk when it is too small
	// to stand alone.
	if start < len(lines) {
		if size < c.minChars && len(chunks) > 0 {
			last := &chunks[len(chunks)-1]
			last.Text = last.Text + "\n" + strings.Join(lines[start:], "\n")
			last.EndLine = len(lines)
		} else {
			flush(len(lines))
		}
	}

	return chunks, nil
}

// DetectLanguage infers the language from a path's extension.
func DetectLanguage(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := languageByExt[ext]
	return lang, ok
}

// splitLines splits content on newlines, dropping the phantom element a
// trailing newline would otherwise produce.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isUnitBoundary reports whether a chunk may close after line i. Boundaries
// sit before a top-level declaration, or after a blank line that is followed
// by column-zero content. Blank lines inside an indented body never split.
func isUnitBoundary(lines []string, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	next := lines[i+1]
	if isTopLevelDecl(next) {
		return true
	}
	if strings.TrimSpace(lines[i]) != "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(next)
	return next != "" && !unicode.IsSpace(r)
}

// isTopLevelDecl reports whether a line starts a top-level declaration:
// no leading whitespace and a known declaration keyword prefix.
func isTopLevelDecl(line string) bool {
	if line == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line)
	if unicode.IsSpace(r) {
		return false
	}
	for _, p := range declPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// looksMinified flags content whose lines are too long to chunk at line
// boundaries.
func looksMinified(lines []string) bool {
	total := 0
	for _, line := range lines {
		if len(line) > maxLineChars {
			return true
		}
		total += len(line)
	}
	return len(lines) > 0 && total/len(lines) > 300
}
