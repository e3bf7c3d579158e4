package config

import (
	"os"
	"regexp"
	"strings"
)

// ${NAME} or ${NAME:-fallback}
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes ${NAME} and ${NAME:-fallback} references in a config
// file with values from the process environment (after any .env file has
// been loaded). An empty variable counts as unset. A missing token or host
// becomes an empty string here and is reported by Validate.
func ExpandEnv(input string) string {
	return expandWith(input, os.LookupEnv)
}

func expandWith(input string, lookup func(string) (string, bool)) string {
	refs := envRef.FindAllStringSubmatchIndex(input, -1)
	if len(refs) == 0 {
		return input
	}

	var sb strings.Builder
	last := 0
	for _, m := range refs {
		sb.WriteString(input[last:m[0]])
		last = m[1]

		if v, ok := lookup(input[m[2]:m[3]]); ok && v != "" {
			sb.WriteString(v)
		} else if m[4] >= 0 {
			sb.WriteString(input[m[4]:m[5]])
		}
	}
	sb.WriteString(input[last:])
	return sb.String()
}
