package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(task *model.Task) error {
	if err := r.db.Create(task).Error; err != nil {
		return fmt.Errorf("create task failed: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's tasks, optionally filtered by completion
// state, ordered and paginated. order must be a trusted expression built by
// the service layer, never raw client input.
func (r *TaskRepository) ListByOwner(ownerID uint, completed *bool, limit, skip int, order string) ([]model.Task, error) {
	query := r.db.Where("owner_id = ?", ownerID)
	if completed != nil {
		query = query.Where("completed = ?", *completed)
	}
	if order != "" {
		query = query.Order(order)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if skip > 0 {
		query = query.Offset(skip)
	}

	var tasks []model.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks failed: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByIDAndOwner(taskID, ownerID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.Where("id = ? AND owner_id = ?", taskID, ownerID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task failed: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Update(task *model.Task) error {
	if err := r.db.Save(task).Error; err != nil {
		return fmt.Errorf("update task failed: %w", err)
	}
	return nil
}

// DeleteByIDAndOwner reports whether a row was actually removed, so the
// caller can distinguish a missing (or foreign) task.
func (r *TaskRepository) DeleteByIDAndOwner(taskID, ownerID uint) (bool, error) {
	result := r.db.Where("id = ? AND owner_id = ?", taskID, ownerID).Delete(&model.Task{})
	if result.Error != nil {
		return false, fmt.Errorf("delete task failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
