package recordstore

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema names the tables of the remote base. Churches name their tables
// differently, so the mapping is config, not code. Field names within each
// table are fixed by the intake form templates.
type Schema struct {
	Members     string `yaml:"members"`
	Volunteers  string `yaml:"volunteers"`
	Assignments string `yaml:"assignments"`
	Attendance  string `yaml:"attendance"`
	Programs    string `yaml:"programs"`

	// Per-channel source tables, for back-linking intake records.
	Evangelism string `yaml:"evangelism"`
	FirstTimer string `yaml:"first_timer"`
	Returner   string `yaml:"returner"`
}

func DefaultSchema() Schema {
	return Schema{
		Members:     "Members",
		Volunteers:  "Volunteers",
		Assignments: "Follow-up Assignments",
		Attendance:  "Attendance",
		Programs:    "Member Programs",
		Evangelism:  "Evangelism Contacts",
		FirstTimer:  "First Timers",
		Returner:    "Returners",
	}
}

// LoadSchema reads a YAML table-name mapping, filling unset entries from the
// defaults. An empty path returns the defaults unchanged.
func LoadSchema(path string) (Schema, error) {
	s := DefaultSchema()
	path = strings.TrimSpace(path)
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read schema file: %w", err)
	}
	var override Schema
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return s, fmt.Errorf("parse schema file: %w", err)
	}
	merge := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	merge(&s.Members, override.Members)
	merge(&s.Volunteers, override.Volunteers)
	merge(&s.Assignments, override.Assignments)
	merge(&s.Attendance, override.Attendance)
	merge(&s.Programs, override.Programs)
	merge(&s.Evangelism, override.Evangelism)
	merge(&s.FirstTimer, override.FirstTimer)
	merge(&s.Returner, override.Returner)
	return s, nil
}
