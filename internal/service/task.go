package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-api/internal/model"
	"github.com/BuzzLyutic/task-api/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrInvalidID  = errors.New("invalid task id")
)

// Broadcaster рассылает события об изменении задач подключенным клиентам
type Broadcaster interface {
	Broadcast(event string, task model.Task)
}

type TaskService struct {
	repo   repo.TaskRepository
	events Broadcaster
}

func NewTaskService(repo repo.TaskRepository, events Broadcaster) *TaskService {
	return &TaskService{repo: repo, events: events}
}

func (s *TaskService) Create(ctx context.Context, in model.TaskInput, idempKey string) (model.Task, error) {
	t, err := s.validateCreate(in) // Валидация модели на корректность введенных данных
	if err != nil {
		return model.Task{}, err
	}

	if idempKey != "" { // Обеспечение идемпотентности - если ключ с ресурсом уже существует, мы не создаем его еще раз
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, existingID)
		}
	}

	// Создание новой задачи
	resource, err := s.repo.Create(ctx, t)
	if err != nil {
		return resource, err
	}

	// Сохранение нового ключа
	if idempKey != "" {
		s.repo.SaveIdempotencyKey(ctx, idempKey, resource.ID)
		// Гонка: параллельный запрос мог сохранить ключ первым, тогда
		// выигравшая запись уже существует, а нашу надо убрать
		if winnerID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil && winnerID != resource.ID {
			s.repo.Delete(ctx, resource.ID)
			return s.repo.Get(ctx, winnerID)
		}
	}

	s.publish("task_created", resource)
	return resource, nil
}

func (s *TaskService) Get(ctx context.Context, rawID string) (model.Task, error) {
	id, err := parseID(rawID)
	if err != nil {
		return model.Task{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

func (s *TaskService) Update(ctx context.Context, rawID string, upd model.TaskUpdate) (model.Task, error) {
	id, err := parseID(rawID)
	if err != nil {
		return model.Task{}, err
	}
	if err := s.validateUpdate(&upd); err != nil {
		return model.Task{}, err
	}

	updated, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return updated, err
	}

	s.publish("task_updated", updated)
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish("task_deleted", model.Task{ID: id})
	return nil
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx)
}

func (s *TaskService) validateCreate(in model.TaskInput) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	if title == "" || description == "" || in.DueDate == nil || in.DueDate.IsZero() {
		return model.Task{}, fmt.Errorf("%w: title, description and due date are required", ErrValidation)
	}
	if utf8.RuneCountInString(title) < 3 {
		return model.Task{}, fmt.Errorf("%w: title must be at least 3 characters long", ErrValidation)
	}

	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		return model.Task{}, fmt.Errorf("%w: status must be pending, in-progress or completed", ErrValidation)
	}

	return model.Task{
		Title:       title,
		Description: description,
		Status:      status,
		DueDate:     in.DueDate.Time,
	}, nil
}

// validateUpdate проверяет только переданные поля; nil-поля остаются как есть
func (s *TaskService) validateUpdate(upd *model.TaskUpdate) error {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if utf8.RuneCountInString(title) < 3 {
			return fmt.Errorf("%w: title must be at least 3 characters long", ErrValidation)
		}
		*upd.Title = title
	}
	if upd.Description != nil {
		description := strings.TrimSpace(*upd.Description)
		if description == "" {
			return fmt.Errorf("%w: description cannot be empty", ErrValidation)
		}
		*upd.Description = description
	}
	if upd.Status != nil && !model.ValidStatus(*upd.Status) {
		return fmt.Errorf("%w: status must be pending, in-progress or completed", ErrValidation)
	}
	if upd.DueDate != nil && upd.DueDate.IsZero() {
		return fmt.Errorf("%w: due date must be a valid date", ErrValidation)
	}
	return nil
}

func (s *TaskService) publish(event string, task model.Task) {
	if s.events != nil {
		s.events.Broadcast(event, task)
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}
