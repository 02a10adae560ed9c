package cache

import "strings"

// KeyFor builds a cache key from a data-kind prefix and its parameters. The
// separator is the last byte of prefix ("races-list-" joins with "-",
// "driverSeasons_" with "_"). Parameters are written verbatim so distinct
// parameters never share a key; callers reject malformed identifiers.
func KeyFor(prefix string, params ...string) string {
	if len(params) == 0 {
		return strings.TrimRight(prefix, "-_")
	}

	sep := "-"
	if prefix != "" {
		sep = prefix[len(prefix)-1:]
	}
	return prefix + strings.Join(params, sep)
}
