package agentrunner

import (
	"fmt"
	"strings"
)

// pathGuard rejects promptFiles paths that attempt to escape the node's cwd
// or reach sensitive system paths, the same path-traversal guard shape used
// for validating outbound request targets, retargeted here from URL paths
// to filesystem paths the execrunner passes to an agent CLI.
type pathGuard struct {
	blockedPatterns []string
}

func newPathGuard() *pathGuard {
	return &pathGuard{
		blockedPatterns: []string{
			"../",
			"..\\",
			"/etc/",
			"/proc/",
			"/sys/",
			"c:/",
			"c:\\",
		},
	}
}

// Validate rejects a promptFiles entry that contains a blocked pattern.
func (g *pathGuard) Validate(path string) error {
	if path == "" {
		return nil
	}
	normalized := strings.ToLower(path)
	for _, pattern := range g.blockedPatterns {
		if strings.Contains(normalized, pattern) {
			return fmt.Errorf("promptFiles entry %q contains blocked pattern %q", path, pattern)
		}
	}
	return nil
}
