// Package changescope provides domain types for asking language models about
// the impact of a code change and turning their answers into Markdown reports.
package changescope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Common errors.
var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrUnsupportedAgent = errors.New("unsupported agent")
	ErrNoSources        = errors.New("no source files found")
	ErrMissingAPIKey    = errors.New("API key not configured")
)

// Agent names a model provider.
type Agent string

// Supported agents.
const (
	AgentOpenAI   Agent = "openai"
	AgentClaude   Agent = "claude"
	AgentDeepSeek Agent = "deepseek"
	AgentGemini   Agent = "gemini"
	AgentOllama   Agent = "ollama"
)

// Agents lists the supported agents in display order.
func Agents() []Agent {
	return []Agent{AgentOpenAI, AgentClaude, AgentDeepSeek, AgentGemini, AgentOllama}
}

// ParseAgent validates an agent name.
func ParseAgent(name string) (Agent, error) {
	for _, a := range Agents() {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAgent, name)
}

// Analyzer sends a prompt to a language model and returns its raw text reply.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// SourceFile is a file included in the prompt.
type SourceFile struct {
	Path     string `json:"path"`     // Slash-separated path relative to the source root
	Language string `json:"language"` // Detected language name, empty if unknown
	Content  string `json:"content"`
}

// SourceReader loads the files a prompt describes.
type SourceReader interface {
	ReadSources(ctx context.Context) ([]SourceFile, error)
}

// Change is a requested change: a file path (or "user_query") and its description.
type Change struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// GitRunner provides the git context added to prompts.
type GitRunner interface {
	// Diff returns the unstaged changes of the repository at repoPath.
	Diff(ctx context.Context, repoPath string) (string, error)
	// History returns the last limit commits with their patches.
	History(ctx context.Context, repoPath string, limit int) (string, error)
}

// Parser parses unified diff text.
type Parser interface {
	Parse(r io.Reader) (*Diff, error)
}

// Diff represents a complete diff containing one or more file changes.
type Diff struct {
	Files []FileDiff
}

// FileDiff represents changes to a single file.
type FileDiff struct {
	OldPath   string // "a/file.go" or empty for new files
	NewPath   string // "b/file.go" or empty for deleted files
	Operation FileOp // Added, Deleted, Modified, Renamed, Copied
	IsBinary  bool   // Binary files have no hunks
	Hunks     []Hunk
}

// Path returns the new path, or the old path for deleted files.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Stats returns the number of added and deleted lines in the file.
func (f FileDiff) Stats() (added, deleted int) {
	for _, hunk := range f.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case LineAdded:
				added++
			case LineDeleted:
				deleted++
			}
		}
	}
	return added, deleted
}

// Summary returns one line per file: "- path (operation, +added -deleted)".
func (d *Diff) Summary() string {
	var sb strings.Builder
	for _, f := range d.Files {
		if f.IsBinary {
			fmt.Fprintf(&sb, "- %s (%s, binary)\n", f.Path(), f.Operation)
			continue
		}
		added, deleted := f.Stats()
		fmt.Fprintf(&sb, "- %s (%s, +%d -%d)\n", f.Path(), f.Operation, added, deleted)
	}
	return sb.String()
}

// FileOp represents the type of operation performed on a file.
type FileOp int

// File operation types.
const (
	FileModified FileOp = iota
	FileAdded
	FileDeleted
	FileRenamed
	FileCopied
)

// String returns the lower-case operation name.
func (op FileOp) String() string {
	switch op {
	case FileAdded:
		return "added"
	case FileDeleted:
		return "deleted"
	case FileRenamed:
		return "renamed"
	case FileCopied:
		return "copied"
	default:
		return "modified"
	}
}

// Hunk represents a contiguous block of changes within a file.
type Hunk struct {
	OldStart int    // From @@ -X,...
	OldCount int    // From @@ -X,Y ...
	NewStart int    // From @@ ...,+X
	NewCount int    // From @@ ...,+X,Y
	Section  string // Optional function name after @@ ... @@
	Lines    []Line
}

// Line represents a single line within a hunk.
type Line struct {
	Type      LineType
	Content   string
	NoNewline bool // "\ No newline at end of file" marker
}

// LineType represents the type of a diff line.
type LineType int

// Line types.
const (
	LineContext LineType = iota
	LineAdded
	LineDeleted
)

// LanguageDetector determines the programming language from a file path.
type LanguageDetector interface {
	// DetectFromPath returns the language name for the given path,
	// or an empty string if the language cannot be determined.
	DetectFromPath(path string) string
}

// Previewer renders Markdown for display in a terminal.
type Previewer interface {
	Preview(markdown string, width int) (string, error)
}

// Clipboard provides copy-to-clipboard functionality.
type Clipboard interface {
	Copy(content string) error
}
