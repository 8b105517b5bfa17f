package command

import (
	"context"

	"github.com/cavrolab/flowpanel/internal/device"
	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
)

// Device issues commands to the pump controller.
type Device interface {
	Extract(ctx context.Context, cmd device.Command) error
	Dispense(ctx context.Context, cmd device.Command) error
	Execute(ctx context.Context, serialPort string) error
	Save(ctx context.Context, payload any) error
}

// Protocols provides the expanded plan and serialized form of a table.
type Protocols interface {
	Plan(ctx context.Context, tenantID, tableID string) (*protocol.Plan, error)
	Payload(ctx context.Context, tenantID, tableID string) (*protocol.Payload, error)
}

// ActivityRepository records issued commands.
type ActivityRepository interface {
	Log(ctx context.Context, tenantID string, entry *activity.ActivityEntry) error
}
