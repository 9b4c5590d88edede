package cr

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// idPattern is CR-YYMMDD-NNN.
var idPattern = regexp.MustCompile(`^CR-(\d{6})-(\d{3})$`)

// maxSequence is the highest per-day sequence number.
const maxSequence = 999

// ValidateID returns ErrInvalidID unless id is well formed.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// FormatID builds the id for day and sequence number seq.
func FormatID(day time.Time, seq int) string {
	return fmt.Sprintf("CR-%s-%03d", day.Format("060102"), seq)
}

// parseID splits a valid id into its day stamp and sequence number.
func parseID(id string) (string, int, bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], seq, true
}
