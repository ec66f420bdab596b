package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// Filter selects which tasks a ranking covers.
type Filter struct {
	task int
	all  bool
}

// AllTasks ranks across every task.
func AllTasks() Filter { return Filter{all: true} }

// ForTask ranks a single task.
func ForTask(taskID int) Filter { return Filter{task: taskID} }

// ParseFilter accepts "all" (or empty) and non-negative task ids.
func ParseFilter(v string) (Filter, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return AllTasks(), nil
	}
	id, err := strconv.Atoi(v)
	if err != nil || id < 0 {
		return Filter{}, fmt.Errorf("%w: task filter must be \"all\" or a task id, got %q", model.ErrValidation, v)
	}
	return ForTask(id), nil
}

// Task returns the selected task, or false when all tasks are selected.
func (f Filter) Task() (int, bool) {
	return f.task, !f.all
}

// Match reports whether taskID passes the filter.
func (f Filter) Match(taskID int) bool {
	return f.all || f.task == taskID
}

func (f Filter) String() string {
	if f.all {
		return "all"
	}
	return strconv.Itoa(f.task)
}

func (f Filter) kind() string {
	if f.all {
		return "all"
	}
	return "task"
}
