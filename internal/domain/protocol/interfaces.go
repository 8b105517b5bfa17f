package protocol

import (
	"context"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
)

// ActivityRepository records journal entries for table mutations.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
