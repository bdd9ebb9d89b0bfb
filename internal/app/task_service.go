package app

import (
	"errors"
	"strings"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

var ErrTaskNotFound = errors.New("task not found")

// taskFields is the allow-list for partial task updates.
var taskFields = map[string]bool{
	"description": true,
	"completed":   true,
}

type TaskService struct {
	taskRepo *repository.TaskRepository
}

type CreateTaskInput struct {
	OwnerID     uint
	Description string
	Completed   bool
}

type ListTasksInput struct {
	OwnerID   uint
	Completed *bool
	Limit     int
	Skip      int
	SortBy    string
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

func (s *TaskService) Create(input CreateTaskInput) (*model.Task, error) {
	description := strings.TrimSpace(input.Description)
	if input.OwnerID == 0 || description == "" {
		return nil, ErrInvalidInput
	}

	task := &model.Task{
		Description: description,
		Completed:   input.Completed,
		OwnerID:     input.OwnerID,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(input ListTasksInput) ([]model.Task, error) {
	if input.OwnerID == 0 {
		return nil, ErrInvalidInput
	}
	order, err := parseSortBy(input.SortBy)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.ListByOwner(input.OwnerID, input.Completed, input.Limit, input.Skip, order)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Get resolves a task for its owner; a foreign task id behaves exactly like
// a missing one.
func (s *TaskService) Get(ownerID, taskID uint) (*model.Task, error) {
	if ownerID == 0 || taskID == 0 {
		return nil, ErrInvalidInput
	}
	task, err := s.taskRepo.GetByIDAndOwner(taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) Update(ownerID, taskID uint, updates map[string]interface{}) (*model.Task, error) {
	if len(updates) == 0 {
		return nil, ErrInvalidInput
	}
	for key := range updates {
		if !taskFields[key] {
			return nil, ErrUnknownField
		}
	}

	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if raw, ok := updates["description"]; ok {
		description, ok := raw.(string)
		if !ok || strings.TrimSpace(description) == "" {
			return nil, ErrInvalidInput
		}
		task.Description = strings.TrimSpace(description)
	}

	if raw, ok := updates["completed"]; ok {
		completed, ok := raw.(bool)
		if !ok {
			return nil, ErrInvalidInput
		}
		task.Completed = completed
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ownerID, taskID uint) (*model.Task, error) {
	task, err := s.Get(ownerID, taskID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.taskRepo.DeleteByIDAndOwner(taskID, ownerID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// parseSortBy turns "createdAt:desc" style input into an ORDER BY clause.
// Only whitelisted fields and directions make it into the query.
func parseSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "created_at", nil
	}

	parts := strings.SplitN(sortBy, ":", 2)
	var column string
	switch parts[0] {
	case "createdAt":
		column = "created_at"
	case "updatedAt":
		column = "updated_at"
	case "completed":
		column = "completed"
	default:
		return "", ErrInvalidInput
	}

	direction := "ASC"
	if len(parts) == 2 {
		switch parts[1] {
		case "asc":
		case "desc":
			direction = "DESC"
		default:
			return "", ErrInvalidInput
		}
	}
	return column + " " + direction, nil
}
