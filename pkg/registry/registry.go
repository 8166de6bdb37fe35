// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity bound to a task type.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks that ids and task types are present and unique, and that
// every implemented task type has an activity entry.
func (r *ActivityRegistry) Validate(implemented []string) []string {
	var problems []string
	ids := map[string]bool{}
	types := map[string]bool{}
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			problems = append(problems, fmt.Sprintf("activity %q has no id", a.DisplayName))
		case ids[a.ID]:
			problems = append(problems, fmt.Sprintf("duplicate activity id %q", a.ID))
		}
		ids[a.ID] = true

		switch {
		case a.TaskType == "":
			problems = append(problems, fmt.Sprintf("activity %q has no task type", a.ID))
		case types[a.TaskType]:
			problems = append(problems, fmt.Sprintf("duplicate task type %q", a.TaskType))
		}
		types[a.TaskType] = true
	}

	missing := make([]string, 0)
	for _, tt := range implemented {
		if !types[tt] {
			missing = append(missing, tt)
		}
	}
	sort.Strings(missing)
	for _, tt := range missing {
		problems = append(problems, fmt.Sprintf("task type %q is implemented but not registered", tt))
	}
	return problems
}
