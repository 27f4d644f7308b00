package terraform

import (
	"regexp"
	"strings"
)

var workspacePatterns = []*regexp.Regexp{
	regexp.MustCompile(`env:([^/]+)`),
	regexp.MustCompile(`/workspaces?/([^/]+)/`),
	regexp.MustCompile(`/env(?:ironment)?s?/([^/]+)/`),
	regexp.MustCompile(`/([^/]+)/terraform\.tfstate$`),
}

var genericWorkspaceNames = map[string]bool{
	"terraform": true,
	"state":     true,
	"states":    true,
	"tfstate":   true,
}

// ExtractWorkspace derives a workspace label from a state source identity.
// Falls back to "default" when the path carries no recognizable pattern.
func ExtractWorkspace(identity string) string {
	path := strings.ToLower(identity)
	for _, re := range workspacePatterns {
		if m := re.FindStringSubmatch(path); m != nil {
			if !genericWorkspaceNames[m[1]] {
				return m[1]
			}
		}
	}
	return "default"
}
