// Package version compares the running build against the latest published
// release.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// ReleasesURL is the latest-release endpoint of the project
	ReleasesURL  = "https://api.github.com/repos/studiowebux/discobrowse/releases/latest"
	checkTimeout = 5 * time.Second
)

// Options configures a release check
type Options struct {
	Current    string       // Running version, with or without a "v" prefix
	URL        string       // Defaults to ReleasesURL
	HTTPClient *http.Client // Defaults to a client with a 5s timeout
}

// Release is the subset of the release payload the check reads
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Result is the outcome of a release check
type Result struct {
	Current   string
	Latest    string
	URL       string
	Available bool
}

// Check fetches the latest release and reports whether it is newer than
// opts.Current
func Check(ctx context.Context, opts Options) (Result, error) {
	url := opts.URL
	if url == "" {
		url = ReleasesURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}
	current := strings.TrimPrefix(opts.Current, "v")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "discobrowse/"+current)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	result := Result{
		Current: current,
		Latest:  strings.TrimPrefix(release.TagName, "v"),
		URL:     release.HTMLURL,
	}
	result.Available = result.Latest != "" && isNewerVersion(result.Latest, current)
	return result, nil
}

// isNewerVersion compares two semantic versions and returns true if latest > current.
// Pre-release and build suffixes are ignored.
func isNewerVersion(latest, current string) bool {
	latestParts := parseVersion(latest)
	currentParts := parseVersion(current)

	n := max(len(latestParts), len(currentParts))
	for i := 0; i < n; i++ {
		l, c := part(latestParts, i), part(currentParts, i)
		if l != c {
			return l > c
		}
	}
	return false
}

func part(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// parseVersion splits "1.2.3-dev" into [1 2 3]
func parseVersion(version string) []int {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		num, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		result = append(result, num)
	}
	return result
}
