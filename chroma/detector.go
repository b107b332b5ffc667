// Package chroma detects source languages using the chroma lexer registry.
package chroma

import (
	"path/filepath"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.LanguageDetector = (*Detector)(nil)

// Detector labels source files with chroma lexer names.
type Detector struct{}

// NewDetector creates a new chroma-based language detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectFromPath returns the language name for the file name at the end of
// path, or an empty string if no lexer claims it.
func (d *Detector) DetectFromPath(path string) string {
	return name(lexers.Match(filepath.Base(filepath.FromSlash(path))))
}

// DetectFromContent is DetectFromPath with a fallback to content analysis
// (shebangs, modelines) for files whose name matches no lexer.
func (d *Detector) DetectFromContent(path, content string) string {
	if lang := d.DetectFromPath(path); lang != "" {
		return lang
	}
	return name(lexers.Analyse(content))
}

func name(lexer chroma.Lexer) string {
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
