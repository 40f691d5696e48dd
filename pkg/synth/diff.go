package synth

import (
	"fmt"
	"strings"

	"github.com/r3labs/diff"
	"sigs.k8s.io/yaml"
)

type (
	ChangeType string

	// Change is a single difference between two templates.
	Change struct {
		Type ChangeType
		Path string
		From any
		To   any
	}
)

const (
	ChangeCreate ChangeType = diff.CREATE
	ChangeDelete ChangeType = diff.DELETE
	ChangeUpdate ChangeType = diff.UPDATE
)

// Diff compares two templates in JSON or YAML form. List order is not significant, so a
// reordered DependsOn is not a change.
func Diff(before, after []byte) ([]Change, error) {
	var a, b map[string]any
	if err := yaml.Unmarshal(before, &a); err != nil {
		return nil, fmt.Errorf("could not parse old template: %w", err)
	}
	if err := yaml.Unmarshal(after, &b); err != nil {
		return nil, fmt.Errorf("could not parse new template: %w", err)
	}
	differ, err := diff.NewDiffer(diff.SliceOrdering(false))
	if err != nil {
		return nil, err
	}
	changelog, err := differ.Diff(a, b)
	if err != nil {
		return nil, err
	}
	changes := make([]Change, len(changelog))
	for i, c := range changelog {
		changes[i] = Change{
			Type: ChangeType(c.Type),
			Path: strings.Join(c.Path, "."),
			From: c.From,
			To:   c.To,
		}
	}
	return changes, nil
}

func (c Change) String() string {
	switch c.Type {
	case ChangeCreate:
		return fmt.Sprintf("%s %s: %v", c.Type, c.Path, c.To)
	case ChangeDelete:
		return fmt.Sprintf("%s %s: %v", c.Type, c.Path, c.From)
	}
	return fmt.Sprintf("%s %s: %v -> %v", c.Type, c.Path, c.From, c.To)
}
