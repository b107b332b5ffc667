package fs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/changescope"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// Defaults for SourceReader.
const (
	DefaultMaxFileSize = 256 << 10
	DefaultWorkers     = 8
)

// IgnoreFile is the project-specific ignore file read in addition to .gitignore.
const IgnoreFile = ".changescope/ignore"

// Compile-time interface verification.
var _ changescope.SourceReader = (*SourceReader)(nil)

// contentDetector is implemented by detectors that can fall back to file contents.
type contentDetector interface {
	DetectFromContent(path, content string) string
}

// SourceReader reads the source files below a root directory.
type SourceReader struct {
	root        string
	extensions  []string
	maxFileSize int64
	workers     int
	detector    changescope.LanguageDetector
}

// SourceOption configures a SourceReader.
type SourceOption func(*SourceReader)

// WithExtensions restricts reading to files with the given extensions
// (".py" or "py"). Without extensions every file the detector recognizes is
// read, or every text file when there is no detector.
func WithExtensions(exts ...string) SourceOption {
	return func(r *SourceReader) {
		for _, ext := range exts {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.extensions = append(r.extensions, strings.ToLower(ext))
		}
	}
}

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) SourceOption {
	return func(r *SourceReader) {
		if n > 0 {
			r.maxFileSize = n
		}
	}
}

// WithDetector sets the language detector used to filter and label files.
func WithDetector(d changescope.LanguageDetector) SourceOption {
	return func(r *SourceReader) {
		r.detector = d
	}
}

// WithWorkers sets how many files are read concurrently.
func WithWorkers(n int) SourceOption {
	return func(r *SourceReader) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewSourceReader creates a SourceReader for root.
func NewSourceReader(root string, opts ...SourceOption) *SourceReader {
	r := &SourceReader{
		root:        root,
		maxFileSize: DefaultMaxFileSize,
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the directory the reader walks.
func (r *SourceReader) Root() string {
	return r.root
}

// ReadSources walks the root directory and returns the matching files sorted
// by path. Files are re-read on every call so edits between turns are seen.
func (r *SourceReader) ReadSources(ctx context.Context) ([]changescope.SourceFile, error) {
	paths, err := r.discover()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", r.root, changescope.ErrNoSources)
	}

	files := make([]*changescope.SourceFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", rel, err)
			}
			if bytes.IndexByte(data, 0) >= 0 {
				return nil // binary
			}
			content := string(data)
			files[i] = &changescope.SourceFile{
				Path:     rel,
				Language: r.language(rel, content),
				Content:  content,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]changescope.SourceFile, 0, len(files))
	for _, f := range files {
		if f != nil {
			result = append(result, *f)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", r.root, changescope.ErrNoSources)
	}
	return result, nil
}

// discover returns the slash-separated relative paths of candidate files in
// lexical order.
func (r *SourceReader) discover() ([]string, error) {
	rules := loadIgnoreRules(r.root)

	var paths []string
	err := filepath.WalkDir(r.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".changescope" {
				return filepath.SkipDir
			}
			if rules != nil && (rules.MatchesPath(rel) || rules.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if rules != nil && rules.MatchesPath(rel) {
			return nil
		}
		if !r.accepts(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > r.maxFileSize {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", r.root, err)
	}
	return paths, nil
}

func (r *SourceReader) accepts(rel string) bool {
	if len(r.extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(rel))
		for _, want := range r.extensions {
			if ext == want {
				return true
			}
		}
		return false
	}
	if r.detector != nil {
		return r.detector.DetectFromPath(rel) != ""
	}
	return true
}

func (r *SourceReader) language(rel, content string) string {
	if r.detector == nil {
		return ""
	}
	if cd, ok := r.detector.(contentDetector); ok {
		return cd.DetectFromContent(rel, content)
	}
	return r.detector.DetectFromPath(rel)
}

// loadIgnoreRules reads .gitignore and the project ignore file under root.
// It returns nil when neither exists.
func loadIgnoreRules(root string) *ignore.GitIgnore {
	var lines []string
	for _, name := range []string{".gitignore", filepath.FromSlash(IgnoreFile)} {
		if l, err := readLines(filepath.Join(root, name)); err == nil {
			lines = append(lines, l...)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
