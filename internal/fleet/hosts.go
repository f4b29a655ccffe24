// Package fleet implements the remote aggregation pipeline:
// bounded concurrent fetch of peer /metrics bodies with
// staggered starts, per-host retry with backoff, a cycle-wide deadline
// with partial-results semantics, and the parse-and-merge step that
// folds successful bodies into the shared AppState.
package fleet

import "strings"

// NormalizeHost strips an http(s):// prefix and any path from a
// configured host entry, leaving the authority ("host:port" or bare
// "host") the pipeline keys everything on.
func NormalizeHost(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}

// HostID returns the stable identifier for a configured host entry: the
// host:port extracted from the configured URL, never the peer's
// self-reported hostname.
func HostID(h string) string { return NormalizeHost(h) }

// MetricsURL builds the scrape URL for a configured host entry,
// prepending http:// when no scheme is present.
func MetricsURL(h string) string {
	scheme := "http://"
	if strings.HasPrefix(strings.TrimSpace(h), "https://") {
		scheme = "https://"
	}
	return scheme + NormalizeHost(h) + "/metrics"
}

// HostIDs maps a configured host list to ids, preserving order.
func HostIDs(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, HostID(h))
	}
	return out
}
