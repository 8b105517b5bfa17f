package repository

import (
	"context"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
)

// ActivityRepository manages command journal persistence
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
	List(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// KeyRepository manages API keys used for bearer authentication
type KeyRepository interface {
	Add(ctx context.Context, token, tenantID, description string) error
	ResolveTenant(ctx context.Context, token string) (string, error)
}
