package cr

import (
	"bytes"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const headerDelim = "+++"

// Marshal encodes c as a +++ TOML header followed by its generated narrative.
func Marshal(c *ChangeRequest) ([]byte, error) {
	header, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling change request %s: %w", c.ID, err)
	}
	var buf bytes.Buffer
	buf.WriteString(headerDelim + "\n")
	buf.Write(header)
	if !bytes.HasSuffix(header, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(headerDelim + "\n\n")
	buf.WriteString(RenderNarrative(c))
	return buf.Bytes(), nil
}

// Unmarshal decodes the header of a stored record and checks its
// invariants. The narrative is ignored. Every failure wraps ErrCorruptRecord.
func Unmarshal(data []byte) (*ChangeRequest, error) {
	header, err := splitHeader(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	var c ChangeRequest
	if err := toml.Unmarshal([]byte(header), &c); err != nil {
		return nil, fmt.Errorf("%w: parsing header: %v", ErrCorruptRecord, err)
	}
	if err := c.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &c, nil
}

// splitHeader returns the text between the opening +++ line and the next
// line consisting only of +++.
func splitHeader(content string) (string, error) {
	content = strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(content, headerDelim+"\n") {
		return "", fmt.Errorf("record does not start with %s header delimiter", headerDelim)
	}
	rest := content[len(headerDelim)+1:]
	if strings.HasPrefix(rest, headerDelim+"\n") || rest == headerDelim {
		return "", nil
	}
	idx := strings.Index(rest, "\n"+headerDelim+"\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n"+headerDelim) {
			return rest[:len(rest)-len(headerDelim)-1], nil
		}
		return "", fmt.Errorf("missing closing %s header delimiter", headerDelim)
	}
	return rest[:idx+1], nil
}

// check verifies the record invariants a stored header must satisfy.
func (c *ChangeRequest) check() error {
	if err := ValidateID(c.ID); err != nil {
		return err
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.PropagationIndex < 0 || c.PropagationIndex > len(c.PropagationSteps) {
		return fmt.Errorf("propagation_index %d out of range [0, %d]", c.PropagationIndex, len(c.PropagationSteps))
	}
	for i, s := range c.PropagationSteps {
		if s.Direction != DirectionUpstream && s.Direction != DirectionDownstream {
			return fmt.Errorf("step %d: invalid direction %q", i, s.Direction)
		}
		before := i < c.PropagationIndex
		switch {
		case before && s.Status != StepDone && s.Status != StepSkipped:
			return fmt.Errorf("step %d before cursor has status %q", i, s.Status)
		case !before && s.Status != StepPending:
			return fmt.Errorf("step %d at or after cursor has status %q", i, s.Status)
		}
	}
	for i, h := range c.History {
		if !h.Status.Valid() {
			return fmt.Errorf("history %d: %w: %q", i, ErrInvalidStatus, h.Status)
		}
	}
	return nil
}
