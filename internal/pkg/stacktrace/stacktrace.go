// Package stacktrace trims goroutine dumps down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" entries found in a
// debug.Stack() dump, outermost call last.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		at := strings.Index(line, "/internal/")
		if at == -1 {
			continue
		}

		ext := strings.Index(line, ".go:")
		if ext == -1 || ext < at {
			continue
		}

		frame := line[at+1:]
		if sp := strings.IndexByte(frame, ' '); sp != -1 {
			frame = frame[:sp]
		}
		paths = append(paths, frame)
	}

	return paths
}
