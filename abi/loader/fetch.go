package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"chainkit/abitool/abi"
)

// HTTPFetcher retrieves a schema document over plain HTTP(S). Canonical
// location is the URL itself, which doubles as the dedup key: two imports
// naming the same URL are loaded once.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with a default client.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: http.DefaultClient}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, imp abi.Import, _ string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imp.URL, nil)
	if err != nil {
		return nil, imp.URL, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, imp.URL, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, imp.URL, fmt.Errorf("http %d fetching %s", resp.StatusCode, imp.URL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, imp.URL, err
	}
	return data, imp.URL, nil
}

// GitFetcher retrieves a schema document from a git repository by shelling
// out to the system `git` binary (a shallow clone into a scratch directory
// under CacheDir, reused across fetches of the same url@ref). Canonical
// location is "url@ref/path", which dedups repeated imports of the same
// file at the same ref even across different schemas.
type GitFetcher struct {
	CacheDir string
}

// NewGitFetcher builds a GitFetcher caching clones under cacheDir.
func NewGitFetcher(cacheDir string) *GitFetcher {
	return &GitFetcher{CacheDir: cacheDir}
}

func (f *GitFetcher) Fetch(ctx context.Context, imp abi.Import, _ string) ([]byte, string, error) {
	canonical := fmt.Sprintf("%s@%s/%s", imp.GitURL, imp.GitRef, imp.GitPath)
	clonePath := filepath.Join(f.CacheDir, cacheKey(imp.GitURL, imp.GitRef))

	if !dirExists(clonePath) {
		if err := os.MkdirAll(filepath.Dir(clonePath), 0o755); err != nil {
			return nil, canonical, err
		}
		args := []string{"clone", "--depth", "1"}
		if imp.GitRef != "" {
			args = append(args, "--branch", imp.GitRef)
		}
		args = append(args, imp.GitURL, clonePath)
		cmd := exec.CommandContext(ctx, "git", args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return nil, canonical, fmt.Errorf("git clone %s: %w: %s", imp.GitURL, err, out)
		}
	}

	data, err := os.ReadFile(filepath.Join(clonePath, imp.GitPath))
	if err != nil {
		return nil, canonical, err
	}
	return data, canonical, nil
}

func cacheKey(url, ref string) string {
	h := fnv32(url + "@" + ref)
	return fmt.Sprintf("%08x", h)
}

// fnv32 is a tiny non-cryptographic hash used only to name cache
// directories. Two url@ref pairs whose hashes collide share one clone
// directory; this is not detected, and the second pair reuses whatever
// the first one cloned there.
func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// OnChainFetcher retrieves a schema document published at an on-chain
// locator through a pluggable Resolve function, kept separate from any
// concrete chain RPC client so the loader package itself stays free of a
// hard dependency on one blockchain SDK. Canonical location is
// "locator@revision" once Resolve reports the revision it actually found.
type OnChainFetcher struct {
	Resolve func(ctx context.Context, locator, requiredRevision string) (data []byte, revision string, err error)
}

func (f *OnChainFetcher) Fetch(ctx context.Context, imp abi.Import, _ string) ([]byte, string, error) {
	if f.Resolve == nil {
		return nil, imp.Locator, fmt.Errorf("on-chain fetcher not configured")
	}
	data, revision, err := f.Resolve(ctx, imp.Locator, imp.RequiredRevision)
	canonical := imp.Locator + "@" + revision
	if err != nil {
		return nil, canonical, err
	}
	if imp.RequiredRevision != "" && imp.RequiredRevision != revision {
		return nil, canonical, &abi.RevisionMismatchError{
			Required: imp.RequiredRevision,
			Actual:   revision,
			Reason:   "on-chain schema revision changed since the importing schema was written",
		}
	}
	return data, canonical, nil
}
