package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/task-api/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) (model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveIdempotencyKey(ctx context.Context, key string, resourceID uuid.UUID) error
	GetIdempotencyKey(ctx context.Context, key string) (uuid.UUID, error)
	GetStats(ctx context.Context) (Stats, error)
}

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}
