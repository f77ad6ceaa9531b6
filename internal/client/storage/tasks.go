package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/common"
)

// LoadTasks reads the persisted task list. An absent key yields an empty
// list, matching the "resolve empty" store contract.
func LoadTasks(ctx context.Context, s Store) ([]models.Task, error) {
	data, err := s.Get(ctx, KeyTasks)
	if errors.Is(err, common.ErrNotFound) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("corrupt task list: %w", err)
	}
	return tasks, nil
}

func SaveTasks(ctx context.Context, s Store, tasks []models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to serialize tasks: %w", err)
	}
	return s.Set(ctx, KeyTasks, data)
}

// LoadFilter reads the persisted view filter, defaulting to FilterAll.
func LoadFilter(ctx context.Context, s Store) (models.Filter, error) {
	data, err := s.Get(ctx, KeyFilter)
	if errors.Is(err, common.ErrNotFound) {
		return models.FilterAll, nil
	}
	if err != nil {
		return models.FilterAll, err
	}
	return models.ParseFilter(string(data)), nil
}

func SaveFilter(ctx context.Context, s Store, f models.Filter) error {
	return s.Set(ctx, KeyFilter, []byte(f))
}

// LoadUserID reads the remembered session user id. Zero means no session.
func LoadUserID(ctx context.Context, s Store) (int64, error) {
	data, err := s.Get(ctx, KeyUserID)
	if errors.Is(err, common.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt user id: %w", err)
	}
	return id, nil
}

func SaveUserID(ctx context.Context, s Store, id int64) error {
	return s.Set(ctx, KeyUserID, []byte(strconv.FormatInt(id, 10)))
}
