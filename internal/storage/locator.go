package storage

import (
	"net/url"
	"regexp"
	"strings"
)

// patchRangePattern matches the `@start:end` byte-range suffix that patch
// style content identifiers carry at the end of a path.
var patchRangePattern = regexp.MustCompile(`@\d+:\d+$`)

// playlistURIPattern matches URI="..." attributes inside playlist tag lines
// (EXT-X-KEY, EXT-X-MAP, EXT-X-MEDIA).
var playlistURIPattern = regexp.MustCompile(`URI="([^"]*)"`)

// LocatorNormalizer rewrites storage-layer URLs and playlist text so that
// persisted manifests stay portable across storage-network topology changes.
// All rewrites are pure string transforms and idempotent, since playlists are
// re-fetched and re-normalized on every request.
type LocatorNormalizer struct {
	aggregatorHost string
	legacyHosts    map[string]struct{}
	fetchPrefix    string
}

// NewLocatorNormalizer returns a LocatorNormalizer that replaces any of
// legacyHosts with aggregatorHost and roots bare content identifiers under
// fetchPrefix.
func NewLocatorNormalizer(aggregatorHost string, legacyHosts []string, fetchPrefix string) *LocatorNormalizer {
	hosts := make(map[string]struct{}, len(legacyHosts))
	for _, h := range legacyHosts {
		hosts[strings.ToLower(h)] = struct{}{}
	}

	prefix := "/" + strings.Trim(fetchPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	return &LocatorNormalizer{
		aggregatorHost: aggregatorHost,
		legacyHosts:    hosts,
		fetchPrefix:    prefix,
	}
}

// NormalizeURL rewrites a single segment or playlist locator. Absolute URLs
// get legacy hosts substituted; root-relative paths get re-rooted under the
// blob-fetch prefix. Byte-range suffixes on patch identifiers are stripped in
// both cases.
func (n *LocatorNormalizer) NormalizeURL(raw string) string {
	if raw == "" {
		return raw
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		if _, legacy := n.legacyHosts[strings.ToLower(parsed.Host)]; legacy {
			parsed.Host = n.aggregatorHost
		}
		parsed.Path = n.normalizePath(parsed.Path)
		return parsed.String()
	}

	return n.normalizePath(raw)
}

// NormalizePlaylist rewrites every locator in an HLS playlist body: both bare
// URI lines and URI="..." attributes on tag lines.
func (n *LocatorNormalizer) NormalizePlaylist(playlist string) string {
	lines := strings.Split(playlist, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = playlistURIPattern.ReplaceAllStringFunc(line, func(match string) string {
				groups := playlistURIPattern.FindStringSubmatch(match)
				return `URI="` + n.NormalizeURL(groups[1]) + `"`
			})
			continue
		}
		lines[i] = n.NormalizeURL(trimmed)
	}
	return strings.Join(lines, "\n")
}

// normalizePath strips a trailing byte-range suffix and roots the path under
// the fetch prefix when it is not already there.
func (n *LocatorNormalizer) normalizePath(path string) string {
	path = patchRangePattern.ReplaceAllString(path, "")

	if n.fetchPrefix == "" {
		return path
	}
	if path == n.fetchPrefix || strings.HasPrefix(path, n.fetchPrefix+"/") {
		return path
	}
	return n.fetchPrefix + "/" + strings.TrimLeft(path, "/")
}
