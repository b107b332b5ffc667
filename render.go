package changescope

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Keys the renderer formats specially.
const (
	KeyChangesRequired = "changes_required"
	KeyImpactAnalysis  = "impact_analysis"
	KeyDependencies    = "dependencies"
)

// TimestampLayout is the layout of the analysis time header.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrUnexpectedShape is reported when a well-known key holds a value of the wrong shape.
var ErrUnexpectedShape = errors.New("unexpected value shape")

// ReportRenderer renders a normalized Result as report text.
type ReportRenderer interface {
	Render(result Result) string
}

// Compile-time interface verification.
var _ ReportRenderer = (*MarkdownRenderer)(nil)

// MarkdownRenderer renders Results as Markdown report sections.
type MarkdownRenderer struct {
	// Now supplies the analysis time. Defaults to time.Now.
	Now func() time.Time
	// OmitTimestamp drops the "*Analysis Time: ...*" header.
	OmitTimestamp bool
	// Logger receives render failures. A nil Logger discards them.
	Logger *slog.Logger
}

// NewMarkdownRenderer returns a MarkdownRenderer that stamps reports with the current time.
func NewMarkdownRenderer(logger *slog.Logger) *MarkdownRenderer {
	return &MarkdownRenderer{Now: time.Now, Logger: logger}
}

// Render formats result as Markdown. Raw results are returned unchanged.
// If a well-known key has an unexpected shape the failure is logged and the
// result's plain string form is returned instead.
func (r *MarkdownRenderer) Render(result Result) string {
	if !result.IsStructured() {
		return result.Raw
	}

	var sb strings.Builder
	if !r.OmitTimestamp {
		fmt.Fprintf(&sb, "*Analysis Time: %s*\n\n", r.now().Format(TimestampLayout))
	}

	for _, f := range result.Mapping {
		if err := renderField(&sb, f); err != nil {
			r.logger().Warn("failed to render report field",
				"key", f.Key,
				"value", f.Value.String(),
				"error", err)
			return result.String()
		}
	}
	return sb.String()
}

func (r *MarkdownRenderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *MarkdownRenderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func renderField(sb *strings.Builder, f Field) error {
	fmt.Fprintf(sb, "### %s\n", Capitalize(f.Key))

	switch f.Key {
	case KeyChangesRequired:
		return renderChanges(sb, f.Value)
	case KeyImpactAnalysis:
		if f.Value.Kind == KindSequence {
			for _, item := range f.Value.Items {
				fmt.Fprintf(sb, "- %s\n", item.String())
			}
		} else {
			fmt.Fprintf(sb, "%s\n", f.Value.String())
		}
		sb.WriteString("\n")
	case KeyDependencies:
		if f.Value.Kind == KindMapping {
			sb.WriteString("| Module | Dependency Type |\n|---------|----------------|\n")
			for _, dep := range f.Value.Fields {
				fmt.Fprintf(sb, "| %s | %s |\n", dep.Key, dep.Value.String())
			}
		} else {
			fmt.Fprintf(sb, "%s\n", f.Value.String())
		}
		sb.WriteString("\n")
	default:
		fmt.Fprintf(sb, "%s\n\n", f.Value.String())
	}
	return nil
}

func renderChanges(sb *strings.Builder, v Value) error {
	if v.Kind != KindMapping {
		return fmt.Errorf("%s: expected mapping, got %s: %w", KeyChangesRequired, v.Kind, ErrUnexpectedShape)
	}
	for _, change := range v.Fields {
		fmt.Fprintf(sb, "#### %s\n", change.Key)
		if change.Value.IsEmpty() {
			continue
		}
		if change.Value.Kind != KindString {
			return fmt.Errorf("%s[%q]: expected string, got %s: %w",
				KeyChangesRequired, change.Key, change.Value.Kind, ErrUnexpectedShape)
		}
		code := strings.TrimSpace(strings.ReplaceAll(change.Value.Text, `\n`, "\n"))
		fmt.Fprintf(sb, "```%s\n%s\n```\n\n", FenceLanguage(change.Key), code)
	}
	return nil
}

// FenceLanguage returns the code fence tag for a file path: the text after the
// last dot, or the whole path when it has no dot.
func FenceLanguage(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Capitalize upper-cases the first character of s and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	// Casers hold state and are not shared between calls.
	r, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(string(r)) + cases.Lower(language.Und).String(s[size:])
}
