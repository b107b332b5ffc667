package changescope

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
)

// UserQueryPath is the Change path used for free-form questions.
const UserQueryPath = "user_query"

// Prompt template placeholders.
const (
	PlaceholderFileSystem    = "{file_system}"
	PlaceholderChanges       = "{changes}"
	PlaceholderGitDiff       = "{git_diff}"
	PlaceholderGitHistory    = "{git_history}"
	PlaceholderAffectedFiles = "{affected_files}"
)

//go:embed prompt.txt
var defaultTemplate string

// DefaultTemplate returns the built-in analysis prompt template.
func DefaultTemplate() string {
	return defaultTemplate
}

// PromptInput is everything a prompt describes.
type PromptInput struct {
	Files      []SourceFile
	Changes    []Change
	GitDiff    string // Unstaged changes, empty when unavailable
	DiffStats  string // Per-file summary of GitDiff
	GitHistory string // Recent commits, empty when unavailable
}

// PromptBuilder fills a template with source files, changes and git context.
type PromptBuilder struct {
	Template string
}

// NewPromptBuilder returns a PromptBuilder using the built-in template.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{Template: defaultTemplate}
}

// LoadPromptBuilder returns a PromptBuilder using the template at path.
// An empty path selects the built-in template.
func LoadPromptBuilder(path string) (*PromptBuilder, error) {
	if path == "" {
		return NewPromptBuilder(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}
	return &PromptBuilder{Template: string(data)}, nil
}

// Build returns the prompt for in. Placeholders with no content are removed.
func (b *PromptBuilder) Build(in PromptInput) string {
	var files strings.Builder
	for _, f := range in.Files {
		fmt.Fprintf(&files, "\n%s:\n%s\n", f.Path, f.Content)
	}

	var changes strings.Builder
	for _, c := range in.Changes {
		fmt.Fprintf(&changes, "\n%s:\n%s\n", c.Path, c.Text)
	}

	var affected strings.Builder
	for _, path := range AffectedFiles(in.Files, in.Changes) {
		fmt.Fprintf(&affected, "- %s\n", path)
	}

	var diff string
	if in.GitDiff != "" {
		diff = "\nUnstaged Changes:\n"
		if in.DiffStats != "" {
			diff += in.DiffStats + "\n"
		}
		diff += in.GitDiff + "\n"
	}

	var history string
	if in.GitHistory != "" {
		history = "\nRecent Commit History:\n" + in.GitHistory + "\n"
	}

	tmpl := b.Template
	if tmpl == "" {
		tmpl = defaultTemplate
	}
	return strings.NewReplacer(
		PlaceholderFileSystem, files.String(),
		PlaceholderChanges, changes.String(),
		PlaceholderAffectedFiles, affected.String(),
		PlaceholderGitDiff, diff,
		PlaceholderGitHistory, history,
	).Replace(tmpl)
}

// AffectedFiles returns the paths a set of changes touches: every changed
// file plus every source file whose content mentions a changed path.
// Free-form queries name no file. The result is sorted.
func AffectedFiles(files []SourceFile, changes []Change) []string {
	affected := make(map[string]struct{})
	for _, c := range changes {
		if c.Path == UserQueryPath || c.Path == "" {
			continue
		}
		affected[c.Path] = struct{}{}
	}
	for _, f := range files {
		if _, ok := affected[f.Path]; ok {
			continue
		}
		for _, c := range changes {
			if c.Path == UserQueryPath || c.Path == "" {
				continue
			}
			if strings.Contains(f.Content, c.Path) {
				affected[f.Path] = struct{}{}
				break
			}
		}
	}

	paths := make([]string, 0, len(affected))
	for p := range affected {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ParseChanges reads a changes file: a JSON object mapping file paths to
// descriptions of the change. Changes keep the order of the file.
func ParseChanges(text string) ([]Change, error) {
	m, err := ParseMapping(text)
	if err != nil {
		return nil, fmt.Errorf("parsing changes: %w", err)
	}
	changes := make([]Change, 0, len(m))
	for _, f := range m {
		changes = append(changes, Change{Path: f.Key, Text: f.Value.String()})
	}
	return changes, nil
}
