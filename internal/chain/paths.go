package chain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafeJoin joins rel onto base and rejects results that land outside base.
// Absolute rel paths are accepted only when they lie inside base.
func SafeJoin(base, rel string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", base, err)
	}
	target := rel
	if !filepath.IsAbs(target) {
		target = filepath.Join(absBase, rel)
	}
	target = filepath.Clean(target)

	inside, err := filepath.Rel(absBase, target)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	if inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, rel)
	}
	return target, nil
}
