package plugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const (
	// gitTimeout bounds every git subprocess call. Status checks must not
	// block indefinitely; a timeout yields an error status, not a failure.
	gitTimeout = 10 * time.Second

	repositoriesType = "repositories"
)

// RepositoryScanner handles collections of git repositories: each item is
// a repository directory, metadata comes from git itself, and status
// reflects working-tree sync state.
type RepositoryScanner struct{}

// NewRepositoryScanner creates the repositories scanner.
func NewRepositoryScanner() *RepositoryScanner {
	return &RepositoryScanner{}
}

func (s *RepositoryScanner) Name() string { return repositoriesType }

// Detect looks for at least one git repository among the root's immediate
// children. Cheap and side-effect free.
func (s *RepositoryScanner) Detect(root string) bool {
	entries, err := os.ReadDir(root)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		gitDir := filepath.Join(root, e.Name(), ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// Discover walks the tree collecting repository roots. Discovery stops at
// each repository boundary so nested repositories are not double-counted.
func (s *RepositoryScanner) Discover(root string, cfg *types.CollectionConfig) ([]string, error) {
	var repos []string
	var patterns []string
	if cfg != nil {
		patterns = cfg.ExcludePatterns
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hiddenOrState(rel) {
			return filepath.SkipDir
		}
		if excluded(rel, patterns) {
			return filepath.SkipDir
		}
		gitDir := filepath.Join(path, ".git")
		if info, statErr := os.Stat(gitDir); statErr == nil && info.IsDir() {
			repos = append(repos, rel)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(repos)
	return repos, nil
}

// ExtractMetadata reads remote, branch, and last-commit information from
// the repository. Git failures degrade to partial metadata.
func (s *RepositoryScanner) ExtractMetadata(absPath string) (map[string]any, error) {
	metadata := make(map[string]any)

	if remote, ok := s.git(absPath, "config", "--get", "remote.origin.url"); ok {
		metadata["remote"] = remote
	}
	if branch, ok := s.git(absPath, "rev-parse", "--abbrev-ref", "HEAD"); ok {
		metadata["branch"] = branch
	}
	if line, ok := s.git(absPath, "log", "-1", "--format=%H|%an|%ad|%s"); ok {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) == 4 {
			metadata["last_commit"] = map[string]any{
				"hash":    parts[0],
				"author":  parts[1],
				"date":    parts[2],
				"message": parts[3],
			}
		}
	}

	return metadata, nil
}

// CheckStatus reports the repository's sync state. Any git failure or
// timeout yields the sentinel error status rather than an error return.
func (s *RepositoryScanner) CheckStatus(ctx context.Context, absPath string) map[string]any {
	status := map[string]any{
		"git_status": "unknown",
		"has_remote": false,
		"is_clean":   true,
	}

	if info, err := os.Stat(filepath.Join(absPath, ".git")); err != nil || !info.IsDir() {
		status["git_status"] = "not_a_repo"
		return status
	}

	remotes, ok := s.gitCtx(ctx, absPath, "remote")
	if !ok {
		status["git_status"] = "error"
		return status
	}
	status["has_remote"] = remotes != ""

	porcelain, ok := s.gitCtx(ctx, absPath, "status", "--porcelain")
	if !ok {
		status["git_status"] = "error"
		return status
	}
	status["is_clean"] = porcelain == ""

	switch {
	case remotes == "":
		status["git_status"] = "no_remote"
	case porcelain != "":
		status["git_status"] = "modified"
	default:
		status["git_status"] = "up_to_date"
	}
	return status
}

// ContentSample prefers the README; without one it falls back to a
// directory listing. Deterministic, fixed character budget.
func (s *RepositoryScanner) ContentSample(absPath string) string {
	for _, name := range []string{"README.md", "README.txt", "README", "readme.md"} {
		data, err := os.ReadFile(filepath.Join(absPath, name))
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content != "" {
			return truncateSample("README:\n" + content)
		}
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return "No content sample available"
	}
	var dirs, files []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	var b strings.Builder
	b.WriteString("Directory contents:")
	if len(dirs) > 0 {
		if len(dirs) > 5 {
			dirs = dirs[:5]
		}
		fmt.Fprintf(&b, "\nDirectories: %s", strings.Join(dirs, ", "))
	}
	if len(files) > 0 {
		if len(files) > 10 {
			files = files[:10]
		}
		fmt.Fprintf(&b, "\nFiles: %s", strings.Join(files, ", "))
	}
	return truncateSample(b.String())
}

func (s *RepositoryScanner) PromptTemplate() string {
	return "This is a software repository/project. Focus on the technology stack, purpose, and functionality."
}

func (s *RepositoryScanner) ExampleDescriptions() []string {
	return []string{
		"Rust terminal multiplexer with scriptable pane layouts and session persistence",
		"Python CLI that syncs Obsidian vaults to a self-hosted backup server",
		"Go library implementing the MCP protocol for editor integrations",
	}
}

func (s *RepositoryScanner) DefaultCategories() []string {
	return []string{
		"ai_llm_agents",
		"terminal_ui",
		"creative_aesthetic",
		"dev_tools",
		"system_infrastructure",
		"utilities_misc",
	}
}

// Fingerprint uses the HEAD commit hash when available: directory mtimes
// are unreliable across clones, but HEAD identifies repository content.
func (s *RepositoryScanner) Fingerprint(absPath string, info os.FileInfo) string {
	if head, ok := s.git(absPath, "rev-parse", "HEAD"); ok {
		return "git:" + head
	}
	return ""
}

// git runs a git subcommand with the default timeout.
func (s *RepositoryScanner) git(dir string, args ...string) (string, bool) {
	return s.gitCtx(context.Background(), dir, args...)
}

// gitCtx runs a git subcommand bounded by both the caller's context and
// the scanner's own timeout.
func (s *RepositoryScanner) gitCtx(ctx context.Context, dir string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}
