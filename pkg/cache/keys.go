package cache

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Key builds a domain key from its parts, e.g. Key("transcript", videoID).
// Parts are joined verbatim; use QueryKey for free-form text.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// QueryKey derives a stable key from a free-form query and its filter set,
// so two semantically identical requests collide on the same entry. The
// query is case- and whitespace-normalized and filter keys are sorted
// before hashing.
func QueryKey(query string, filters map[string]string) string {
	h := fnv.New64a()

	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	h.Write([]byte(normalized))

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			h.Write([]byte{0})
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(filters[k]))
		}
	}

	return fmt.Sprintf("query:%016x", h.Sum64())
}
