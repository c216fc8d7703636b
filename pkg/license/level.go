package license

import (
	"encoding/json"
	"fmt"
)

// Level determines which Allowance a license grants.
type Level string

const (
	LevelTeam       Level = "Team"
	LevelEnterprise Level = "Enterprise"
)

// ParseLevel parses the lower-case level names accepted on the command line.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "team":
		return LevelTeam, nil
	case "enterprise":
		return LevelEnterprise, nil
	default:
		return "", &ParameterError{Name: "license level", Value: s}
	}
}

func (l Level) valid() bool {
	return l == LevelTeam || l == LevelEnterprise
}

func (l Level) MarshalJSON() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("unknown license level %q", string(l))
	}
	return json.Marshal(string(l))
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	level := Level(s)
	if !level.valid() {
		return fmt.Errorf("unknown license level %q", s)
	}
	*l = level
	return nil
}
