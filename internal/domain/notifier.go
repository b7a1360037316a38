package domain

import "context"

type Notifier interface {
	Notify(ctx context.Context, result Result) error
}
