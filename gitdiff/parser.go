// Package gitdiff implements diff parsing using bluekeyes/go-gitdiff.
package gitdiff

import (
	"fmt"
	"io"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.Parser = (*Parser)(nil)

// Parser parses unified diff content using go-gitdiff.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads unified diff text, such as `git diff` output, into a Diff.
func (p *Parser) Parse(r io.Reader) (*changescope.Diff, error) {
	files, _, err := gitdiff.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	result := &changescope.Diff{
		Files: make([]changescope.FileDiff, 0, len(files)),
	}
	for _, f := range files {
		result.Files = append(result.Files, convertFile(f))
	}
	return result, nil
}

func convertFile(f *gitdiff.File) changescope.FileDiff {
	fd := changescope.FileDiff{
		OldPath:  f.OldName,
		NewPath:  f.NewName,
		IsBinary: f.IsBinary,
	}

	switch {
	case f.IsNew:
		fd.Operation = changescope.FileAdded
	case f.IsDelete:
		fd.Operation = changescope.FileDeleted
	case f.IsRename:
		fd.Operation = changescope.FileRenamed
	case f.IsCopy:
		fd.Operation = changescope.FileCopied
	default:
		fd.Operation = changescope.FileModified
	}

	fd.Hunks = make([]changescope.Hunk, 0, len(f.TextFragments))
	for _, frag := range f.TextFragments {
		fd.Hunks = append(fd.Hunks, convertFragment(frag))
	}
	return fd
}

func convertFragment(frag *gitdiff.TextFragment) changescope.Hunk {
	hunk := changescope.Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
		Section:  frag.Comment,
	}

	for _, l := range frag.Lines {
		line := changescope.Line{
			Content:   l.Line,
			NoNewline: l.NoEOL(),
		}
		switch l.Op {
		case gitdiff.OpAdd:
			line.Type = changescope.LineAdded
		case gitdiff.OpDelete:
			line.Type = changescope.LineDeleted
		default:
			line.Type = changescope.LineContext
		}
		hunk.Lines = append(hunk.Lines, line)
	}
	return hunk
}
