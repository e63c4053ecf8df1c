package waitlist

import (
	"context"
	"fmt"

	"innata/internal/logger"
)

// Manager keeps one FIFO queue per class. Positions are never reordered and
// the queue has no limit. Enqueue must run while the class row is locked so
// concurrent callers get distinct positions.
type Manager struct {
	repo Repository
}

func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) Enqueue(ctx context.Context, userID, classID int) (int, error) {
	n, err := m.repo.CountForClass(ctx, classID)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}

	e := &Entry{UserID: userID, ScheduledClassID: classID, Position: n + 1}
	if err := m.repo.Insert(ctx, e); err != nil {
		return 0, fmt.Errorf("insert waitlist entry: %w", err)
	}

	logger.Debug("waitlist entry inserted", "user_id", userID, "class_id", classID, "position", e.Position)
	return e.Position, nil
}

func (m *Manager) List(ctx context.Context, classID int) ([]Entry, error) {
	return m.repo.ListByClass(ctx, classID)
}
