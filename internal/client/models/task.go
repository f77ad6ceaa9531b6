package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/pintask/internal/common"
)

const (
	MaxTitleLen       = 40
	MaxDescriptionLen = 30
)

// Task is a single to-do item. IDs are client-generated (monotonic per
// device) until the first successful remote insert, after which the
// server-assigned id is authoritative. CreatedAt/UpdatedAt are assigned by
// the server and are zero for tasks that have never been pushed.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	UserID      int64     `json:"user_id,omitempty"`
}

// Validate checks form-level constraints. These are rejected locally and
// never reach the sync layer.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("%w: title must not be empty", common.ErrValidation)
	}
	if len([]rune(t.Title)) > MaxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", common.ErrValidation, MaxTitleLen)
	}
	if len([]rune(t.Description)) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", common.ErrValidation, MaxDescriptionLen)
	}
	return nil
}

// Clone returns a copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}
