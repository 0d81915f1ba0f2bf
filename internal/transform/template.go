package transform

import (
	"sort"
	"strings"
)

// ExpandVariables replaces {{NAME}} and ${NAME} references with values from vars.
// Longer names are replaced first so {{SERVICE_NAME}} is not consumed by {{SERVICE}}.
// Unknown references are left untouched.
func ExpandVariables(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.ContainsAny(text, "{$") {
		return text
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	pairs := make([]string, 0, len(names)*4)
	for _, name := range names {
		pairs = append(pairs, "{{"+name+"}}", vars[name], "${"+name+"}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
