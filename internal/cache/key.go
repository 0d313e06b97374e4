package cache

import (
	"fmt"
	"sort"
	"strings"
)

// keySeparator joins the endpoint and each name:value pair.
const keySeparator = "|"

// BuildKey derives the cache key for endpoint and params.
//
// Param names are sorted so insertion order never matters:
//
//	BuildKey("players", Params{"team": "Sundowns", "season": 2023})
//	// players|season:2023|team:Sundowns
func BuildKey(endpoint string, params Params) string {
	if len(params) == 0 {
		return endpoint
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, name := range names {
		b.WriteString(keySeparator)
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(fmt.Sprint(params[name]))
	}
	return b.String()
}

// belongsTo reports whether key was built for endpoint, with or without params.
func belongsTo(key, endpoint string) bool {
	if key == endpoint {
		return true
	}
	return strings.HasPrefix(key, endpoint+keySeparator)
}
