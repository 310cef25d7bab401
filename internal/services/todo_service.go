package services

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avren/tasklist-be/internal/models"
	"github.com/avren/tasklist-be/internal/websocket"
)

// TodoListCache is the caching contract the todo service relies on:
// reads may be served from it, and every mutation must invalidate the
// owner's list. Implemented by cache.TodoCache.
type TodoListCache interface {
	GetList(ctx context.Context, userID string) ([]models.Todo, bool)
	SetList(ctx context.Context, userID string, todos []models.Todo)
	Invalidate(ctx context.Context, userID string)
}

// TodoServiceProvider defines the interface for todo services. Every
// operation takes the owner's user ID and enforces ownership itself, so
// no caller can reach another user's todos.
type TodoServiceProvider interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error)
	GetForOwner(ctx context.Context, id int64, ownerID string) (models.Todo, error)
	Create(ctx context.Context, ownerID, title string, completed bool) (models.Todo, error)
	UpdateForOwner(ctx context.Context, id int64, ownerID, title string, completed bool) (models.Todo, error)
	DeleteForOwner(ctx context.Context, id int64, ownerID string) error
}

// TodoService provides business logic for todo management. The cache
// and hub are optional; a nil value disables that concern.
type TodoService struct {
	db     *sql.DB
	events EventServiceProvider
	cache  TodoListCache
	hub    *websocket.Hub
	group  singleflight.Group
}

// NewTodoService creates a new TodoService.
func NewTodoService(db *sql.DB, events EventServiceProvider, todoCache TodoListCache, hub *websocket.Hub) *TodoService {
	return &TodoService{db: db, events: events, cache: todoCache, hub: hub}
}

// ListByOwner returns all todos belonging to a user, newest first. The
// filter is applied server-side in SQL; nothing a client sends can
// widen it. Reads go through the cache when enabled, with concurrent
// misses for the same user collapsed into one query.
func (s *TodoService) ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error) {
	if s.cache != nil {
		if todos, ok := s.cache.GetList(ctx, ownerID); ok {
			return todos, nil
		}
	}

	v, err, _ := s.group.Do("todos:"+ownerID, func() (interface{}, error) {
		todos, err := s.listByOwnerFromDB(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetList(ctx, ownerID, todos)
		}
		return todos, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Todo), nil
}

func (s *TodoService) listByOwnerFromDB(ctx context.Context, ownerID string) ([]models.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, completed, user_id, created_at, updated_at FROM todos WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Completed, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// getByID loads a todo regardless of owner. Callers must apply the
// ownership check before releasing the result.
func (s *TodoService) getByID(ctx context.Context, id int64) (models.Todo, error) {
	var t models.Todo
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, completed, user_id, created_at, updated_at FROM todos WHERE id = ?", id)
	err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Todo{}, ErrTodoNotFound
		}
		return models.Todo{}, err
	}
	return t, nil
}

// GetForOwner loads a todo and permits access only when its owner id
// equals ownerID.
func (s *TodoService) GetForOwner(ctx context.Context, id int64, ownerID string) (models.Todo, error) {
	t, err := s.getByID(ctx, id)
	if err != nil {
		return models.Todo{}, err
	}
	if t.UserID != ownerID {
		return models.Todo{}, ErrNotOwner
	}
	return t, nil
}

// Create inserts a new todo. The owner is always ownerID; any
// client-supplied owner never reaches this layer.
func (s *TodoService) Create(ctx context.Context, ownerID, title string, completed bool) (models.Todo, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO todos(title, completed, user_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?)",
		title, completed, ownerID, now, now)
	if err != nil {
		return models.Todo{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Todo{}, err
	}

	todo := models.Todo{
		ID:        id,
		Title:     title,
		Completed: completed,
		UserID:    ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.invalidate(ctx, ownerID)
	s.notify("todo.created", todo)
	if s.events != nil {
		s.events.Record("todo.created", "info", "todo created: "+title, &ownerID)
	}
	return todo, nil
}

// UpdateForOwner sets the title and completed flag of an owned todo.
func (s *TodoService) UpdateForOwner(ctx context.Context, id int64, ownerID, title string, completed bool) (models.Todo, error) {
	t, err := s.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return models.Todo{}, err
	}

	now := time.Now().UTC()
	if err := s.updateOwned(ctx, id, ownerID, title, completed, now); err != nil {
		return models.Todo{}, err
	}

	t.Title = title
	t.Completed = completed
	t.UpdatedAt = now

	s.invalidate(ctx, ownerID)
	s.notify("todo.updated", t)
	if s.events != nil {
		s.events.Record("todo.updated", "info", "todo updated: "+title, &ownerID)
	}
	return t, nil
}

// DeleteForOwner removes an owned todo.
func (s *TodoService) DeleteForOwner(ctx context.Context, id int64, ownerID string) error {
	t, err := s.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.deleteOwned(ctx, id, ownerID); err != nil {
		return err
	}

	s.invalidate(ctx, ownerID)
	s.notify("todo.deleted", t)
	if s.events != nil {
		s.events.Record("todo.deleted", "info", "todo deleted: "+t.Title, &ownerID)
	}
	return nil
}

// updateOwned writes the new title and completed flag, keyed on both id
// and owner so a row deleted after the ownership check cannot report a
// phantom success.
func (s *TodoService) updateOwned(ctx context.Context, id int64, ownerID, title string, completed bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE todos SET title = ?, completed = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		title, completed, now, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// deleteOwned removes the row keyed on both id and owner, reporting
// ErrTodoNotFound when nothing matched.
func (s *TodoService) deleteOwned(ctx context.Context, id int64, ownerID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// invalidate drops the owner's cached list after a mutation.
func (s *TodoService) invalidate(ctx context.Context, ownerID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, ownerID)
	}
}

// notify pushes a todo-change message to the owner's websocket clients.
func (s *TodoService) notify(action string, todo models.Todo) {
	if s.hub == nil {
		return
	}
	payload := struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Completed bool   `json:"completed"`
	}{todo.ID, todo.Title, todo.Completed}
	if msg := websocket.NewTodoMessage(action, payload); msg != nil {
		s.hub.BroadcastToUser(todo.UserID, msg)
	}
}
