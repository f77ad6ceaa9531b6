package models

// Filter selects which tasks a view shows. It is persisted locally and is
// purely a presentation concern; it shares the local store with the task
// list, nothing else.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterDone   Filter = "done"
	FilterUndone Filter = "undone"
)

// ParseFilter maps a stored string to a Filter, defaulting to FilterAll
// for anything unrecognized.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterDone:
		return FilterDone
	case FilterUndone:
		return FilterUndone
	default:
		return FilterAll
	}
}

// Apply returns the subset of tasks matching the filter, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	if f == FilterAll {
		return tasks
	}
	result := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if (f == FilterDone) == t.Done {
			result = append(result, t)
		}
	}
	return result
}
