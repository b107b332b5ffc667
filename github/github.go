// Package github reads source files and commit history from GitHub repositories.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/changescope"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"
)

// Defaults for SourceReader.
const (
	DefaultBranch      = "main"
	DefaultMaxFileSize = 256 << 10
	DefaultWorkers     = 4
	MaxCommits         = 100 // GitHub's page size limit
)

// Errors returned by SourceReader.
var (
	ErrInvalidRepo  = errors.New("repository must be in owner/name form")
	ErrInvalidLimit = errors.New("commit limit must be positive")
)

// Compile-time interface verification.
var _ changescope.SourceReader = (*SourceReader)(nil)

// ParseRepo splits "owner/name" into its parts.
func ParseRepo(s string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%q: %w", s, ErrInvalidRepo)
	}
	return owner, strings.TrimSuffix(name, ".git"), nil
}

// SourceReader reads source files from a branch of a GitHub repository.
type SourceReader struct {
	client      *gh.Client
	owner       string
	repo        string
	branch      string
	extensions  []string
	maxFileSize int
	workers     int
	detector    changescope.LanguageDetector
}

// Option configures a SourceReader.
type Option func(*SourceReader)

// WithBranch selects the branch, tag or commit to read.
func WithBranch(branch string) Option {
	return func(r *SourceReader) {
		if branch != "" {
			r.branch = branch
		}
	}
}

// WithExtensions restricts reading to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(r *SourceReader) {
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			r.extensions = append(r.extensions, ext)
		}
	}
}

// WithDetector sets the language detector used to filter and label files.
func WithDetector(d changescope.LanguageDetector) Option {
	return func(r *SourceReader) {
		r.detector = d
	}
}

// WithMaxFileSize skips blobs larger than n bytes.
func WithMaxFileSize(n int) Option {
	return func(r *SourceReader) {
		if n > 0 {
			r.maxFileSize = n
		}
	}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(r *SourceReader) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		if parsed, err := url.Parse(u); err == nil {
			r.client.BaseURL = parsed
		}
	}
}

// NewSourceReader creates a reader for owner/repo. An empty token makes
// unauthenticated requests, which GitHub rate-limits heavily.
func NewSourceReader(httpClient *http.Client, token, owner, repo string, opts ...Option) *SourceReader {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	r := &SourceReader{
		client:      client,
		owner:       owner,
		repo:        repo,
		branch:      DefaultBranch,
		maxFileSize: DefaultMaxFileSize,
		workers:     DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadSources lists the branch tree and downloads the matching files.
func (r *SourceReader) ReadSources(ctx context.Context) ([]changescope.SourceFile, error) {
	tree, _, err := r.client.Git.GetTree(ctx, r.owner, r.repo, r.branch, true)
	if err != nil {
		return nil, fmt.Errorf("listing %s/%s@%s: %w", r.owner, r.repo, r.branch, err)
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || entry.GetSize() > r.maxFileSize {
			continue
		}
		if r.accepts(entry.GetPath()) {
			paths = append(paths, entry.GetPath())
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s/%s@%s: %w", r.owner, r.repo, r.branch, changescope.ErrNoSources)
	}

	files := make([]changescope.SourceFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range paths {
		g.Go(func() error {
			content, err := r.FetchFile(ctx, p)
			if err != nil {
				return err
			}
			files[i] = changescope.SourceFile{Path: p, Language: r.language(p), Content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// FetchFile returns the decoded content of the file at p on the configured branch.
func (r *SourceReader) FetchFile(ctx context.Context, p string) (string, error) {
	file, _, _, err := r.client.Repositories.GetContents(ctx, r.owner, r.repo, p,
		&gh.RepositoryContentGetOptions{Ref: r.branch})
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", p, err)
	}
	if file == nil {
		return "", fmt.Errorf("fetching %s: path is a directory", p)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", p, err)
	}
	return content, nil
}

// Commit is a commit with the files it changed.
type Commit struct {
	SHA     string
	Author  string
	Date    time.Time
	Message string
	Files   []CommitFile
}

// CommitFile is a file changed by a commit.
type CommitFile struct {
	Path      string
	Status    string // added, modified, removed, renamed
	Additions int
	Deletions int
}

// RecentCommits returns the last limit commits of the branch, newest first,
// each with its changed files. Limits above MaxCommits are reduced to it.
func (r *SourceReader) RecentCommits(ctx context.Context, limit int) ([]Commit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	limit = min(limit, MaxCommits)
	list, _, err := r.client.Repositories.ListCommits(ctx, r.owner, r.repo, &gh.CommitsListOptions{
		SHA:         r.branch,
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}
	if len(list) > limit {
		list = list[:limit]
	}

	commits := make([]Commit, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, c := range list {
		g.Go(func() error {
			full, _, err := r.client.Repositories.GetCommit(ctx, r.owner, r.repo, c.GetSHA(), nil)
			if err != nil {
				return fmt.Errorf("fetching commit %s: %w", c.GetSHA(), err)
			}
			commit := Commit{
				SHA:     full.GetSHA(),
				Author:  full.GetCommit().GetAuthor().GetName(),
				Date:    full.GetCommit().GetAuthor().GetDate().Time,
				Message: full.GetCommit().GetMessage(),
			}
			for _, f := range full.Files {
				commit.Files = append(commit.Files, CommitFile{
					Path:      f.GetFilename(),
					Status:    f.GetStatus(),
					Additions: f.GetAdditions(),
					Deletions: f.GetDeletions(),
				})
			}
			commits[i] = commit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return commits, nil
}

// FormatCommits renders commits in the plain-text form used for git history prompts.
func FormatCommits(commits []Commit) string {
	var sb strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&sb, "commit %s\nAuthor: %s\nDate:   %s\n\n    %s\n\n",
			c.SHA, c.Author, c.Date.Format(time.RFC1123Z), firstLine(c.Message))
		for _, f := range c.Files {
			fmt.Fprintf(&sb, "  %s %s (+%d -%d)\n", f.Status, f.Path, f.Additions, f.Deletions)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (r *SourceReader) accepts(p string) bool {
	if len(r.extensions) > 0 {
		ext := strings.ToLower(path.Ext(p))
		for _, want := range r.extensions {
			if ext == want {
				return true
			}
		}
		return false
	}
	if r.detector != nil {
		return r.detector.DetectFromPath(p) != ""
	}
	return true
}

func (r *SourceReader) language(p string) string {
	if r.detector == nil {
		return ""
	}
	return r.detector.DetectFromPath(p)
}
