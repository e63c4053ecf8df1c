package waitlist

import "context"

type Repository interface {
	CountForClass(ctx context.Context, classID int) (int, error)
	Insert(ctx context.Context, e *Entry) error
	ListByClass(ctx context.Context, classID int) ([]Entry, error)
}
