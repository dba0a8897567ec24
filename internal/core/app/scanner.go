package app

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"pycount/internal/core/config"
	"pycount/internal/shared/util"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Scanner selects the source files of a tree. Include patterns are
// doublestar globs on the root-relative slash path; exclude patterns are
// gobwas globs on base names.
type Scanner struct {
	include          []string
	excludeDirs      []glob.Glob
	excludeFiles     []glob.Glob
	respectGitignore bool

	ignoreMu sync.Mutex
	ignores  map[string]*gitignore.GitIgnore
}

func NewScanner(cfg *config.Config) (*Scanner, error) {
	dirGlobs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}

	return &Scanner{
		include:          append([]string(nil), cfg.Include...),
		excludeDirs:      dirGlobs,
		excludeFiles:     fileGlobs,
		respectGitignore: cfg.RespectGitignore,
		ignores:          make(map[string]*gitignore.GitIgnore),
	}, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Discovery is the result of scanning a tree.
type Discovery struct {
	Files []string
	// Unreadable lists directories below the root that could not be read.
	// They are skipped rather than failing the scan.
	Unreadable []string
}

// Discover walks root and returns the accepted files sorted by path. A root
// that is a regular file is returned as-is.
func (s *Scanner) Discover(root string) ([]string, error) {
	d, err := s.Scan(root)
	return d.Files, err
}

// Scan is Discover that also reports the directories it had to skip. Only
// an unreadable root is an error.
func (s *Scanner) Scan(root string) (Discovery, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Discovery{}, err
	}
	if !info.IsDir() {
		return Discovery{Files: []string{root}}, nil
	}

	ignore := s.gitignore(root)

	var out Discovery
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			out.Unreadable = append(out.Unreadable, path)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if s.excludedDir(d.Name()) || ignored(ignore, root, path+string(filepath.Separator)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !regularFile(path, d) {
			return nil
		}
		if s.acceptFile(ignore, root, path) {
			out.Files = append(out.Files, path)
		}
		return nil
	})
	if err != nil {
		return Discovery{}, err
	}

	sort.Strings(out.Files)
	return out, nil
}

// regularFile reports whether d is a regular file, following a symlink to
// its target.
func regularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Accept reports whether path, somewhere under root, would be discovered.
func (s *Scanner) Accept(root, path string) bool {
	root = filepath.Clean(root)
	for dir := filepath.Dir(path); dir != root; {
		if s.excludedDir(filepath.Base(dir)) {
			return false
		}
		next := filepath.Dir(dir)
		if next == dir {
			return false
		}
		dir = next
	}
	return s.acceptFile(s.gitignore(root), root, path)
}

func (s *Scanner) acceptFile(ignore *gitignore.GitIgnore, root, path string) bool {
	base := filepath.Base(path)
	for _, g := range s.excludeFiles {
		if g.Match(base) {
			return false
		}
	}
	if ignored(ignore, root, path) {
		return false
	}

	rel := util.RelSlash(root, path)
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedDir(name string) bool {
	for _, g := range s.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (s *Scanner) gitignore(root string) *gitignore.GitIgnore {
	if !s.respectGitignore {
		return nil
	}

	s.ignoreMu.Lock()
	defer s.ignoreMu.Unlock()
	if ignore, ok := s.ignores[root]; ok {
		return ignore
	}

	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		ignore, _ = gitignore.CompileIgnoreFile(gitignorePath)
	}
	s.ignores[root] = ignore
	return ignore
}

func ignored(ignore *gitignore.GitIgnore, root, path string) bool {
	if ignore == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if path[len(path)-1] == filepath.Separator {
		rel += "/"
	}
	return ignore.MatchesPath(filepath.ToSlash(rel))
}

// Discover lists the files a Run over root would process.
func (a *App) Discover(root string) ([]string, error) {
	return a.scanner.Discover(root)
}
