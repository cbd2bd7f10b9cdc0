package bundler

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Target is the JavaScript runtime a package is generated for.
type Target int

const (
	TargetWeb Target = iota
	TargetNodeJS
)

var ErrUnknownTarget = errors.New("unknown target")

var targetNames = map[Target]string{
	TargetWeb:    "web",
	TargetNodeJS: "nodejs",
}

// Targets lists all targets in build order.
func Targets() []Target {
	return []Target{TargetWeb, TargetNodeJS}
}

func ParseTarget(s string) (Target, error) {
	for t, name := range targetNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w %q (want web or nodejs)", ErrUnknownTarget, s)
}

func (t Target) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTarget(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = parsed
	return nil
}
