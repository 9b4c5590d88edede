// Package ansi holds the SGR escape codes vchain uses for terminal output.
package ansi

import "strings"

// SGR (Select Graphic Rendition) codes.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

// Paint wraps s in the given codes followed by Reset. With no codes s is
// returned unchanged.
func Paint(s string, codes ...string) string {
	if len(codes) == 0 || s == "" {
		return s
	}
	return strings.Join(codes, "") + s + Reset
}
