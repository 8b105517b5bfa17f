package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cavrolab/flowpanel/internal/device"
	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/protocol"
)

// Config holds command service settings.
type Config struct {
	Limits            Limits
	DefaultSerialPort string
}

// Service validates commands and forwards them to the device.
type Service struct {
	device     Device
	protocols  Protocols
	activities ActivityRepository
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a new command service. activities may be nil.
func NewService(dev Device, protocols Protocols, activities ActivityRepository, cfg Config, logger *slog.Logger) *Service {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		device:     dev,
		protocols:  protocols,
		activities: activities,
		cfg:        cfg,
		logger:     logger,
	}
}

// Extract draws a volume from a port. The volume is rounded to whole
// microlitres before the range check.
func (s *Service) Extract(ctx context.Context, tenantID string, req Request) (*Result, error) {
	return s.single(ctx, tenantID, KindExtract, req)
}

// Dispense pushes a volume out through a port.
func (s *Service) Dispense(ctx context.Context, tenantID string, req Request) (*Result, error) {
	return s.single(ctx, tenantID, KindDispense, req)
}

// Execute runs the commands queued on a serial port.
func (s *Service) Execute(ctx context.Context, tenantID, serialPort string) (*Result, error) {
	res := &Result{Kind: KindExecute, SerialPort: s.serialPort(serialPort)}
	if err := s.device.Execute(ctx, res.SerialPort); err != nil {
		s.failed(ctx, tenantID, "", *res, err)
		return nil, fmt.Errorf("executing: %w", err)
	}
	s.record(ctx, tenantID, &activity.ActivityEntry{
		ActivityType: activity.TypeCommandExecute,
		Summary:      fmt.Sprintf("execute on %q", res.SerialPort),
		Details:      detailsJSON(res),
	})
	return res, nil
}

// SubmitProtocol expands a table into transfer steps and sends an
// extract and a dispense per step followed by one execute. Step volumes
// are rounded to whole microlitres and range checked before anything is
// sent. The first device error aborts
// the submission.
func (s *Service) SubmitProtocol(ctx context.Context, tenantID string, req SubmitRequest) (*SubmitResult, error) {
	plan, err := s.protocols.Plan(ctx, tenantID, req.TableID)
	if err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, ErrEmptyProtocol
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		step.Volume = WholeMicrolitres(step.Volume)
		if err := s.cfg.Limits.Check(step.Volume); err != nil {
			return nil, fmt.Errorf("step %d (row %d): %w", i+1, step.Row, err)
		}
	}

	out := &SubmitResult{
		TableID:    plan.TableID,
		Tick:       plan.Tick,
		SerialPort: s.serialPort(req.SerialPort),
		Steps:      len(plan.Steps),
	}
	for i, step := range plan.Steps {
		extract := device.Command{Volume: step.Volume, Port: step.FromPort, SerialPort: out.SerialPort}
		if err := s.device.Extract(ctx, extract); err != nil {
			return nil, s.submitFailed(ctx, tenantID, plan, i, KindExtract, extract, err)
		}
		out.Commands++

		dispense := device.Command{Volume: step.Volume, Port: step.ToPort, SerialPort: out.SerialPort}
		if err := s.device.Dispense(ctx, dispense); err != nil {
			return nil, s.submitFailed(ctx, tenantID, plan, i, KindDispense, dispense, err)
		}
		out.Commands++
	}
	if err := s.device.Execute(ctx, out.SerialPort); err != nil {
		s.failed(ctx, tenantID, plan.TableID, Result{Kind: KindExecute, SerialPort: out.SerialPort}, err)
		return nil, fmt.Errorf("executing protocol: %w", err)
	}
	out.Commands++

	s.logger.Info("protocol submitted",
		"table_id", plan.TableID,
		"steps", out.Steps,
		"serial_port", out.SerialPort,
	)
	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      plan.TableID,
		ActivityType: activity.TypeProtocolSubmitted,
		Summary:      fmt.Sprintf("submitted %d steps", out.Steps),
		Details:      detailsJSON(out),
		Tick:         plan.Tick,
	})
	return out, nil
}

// SaveProtocol sends the serialized table to the controller's save endpoint.
func (s *Service) SaveProtocol(ctx context.Context, tenantID, tableID string) (*SaveResult, error) {
	payload, err := s.protocols.Payload(ctx, tenantID, tableID)
	if err != nil {
		return nil, err
	}
	if err := s.device.Save(ctx, payload); err != nil {
		s.failed(ctx, tenantID, tableID, Result{Kind: KindSave}, err)
		return nil, fmt.Errorf("saving protocol: %w", err)
	}

	out := &SaveResult{TableID: tableID, Rows: payload.Len()}
	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      tableID,
		ActivityType: activity.TypeProtocolSaved,
		Summary:      fmt.Sprintf("saved %d rows", out.Rows),
		Details:      detailsJSON(out),
	})
	return out, nil
}

func (s *Service) single(ctx context.Context, tenantID string, kind Kind, req Request) (*Result, error) {
	req.Volume = WholeMicrolitres(req.Volume)
	if err := s.cfg.Limits.Check(req.Volume); err != nil {
		return nil, err
	}
	if err := protocol.ValidatePort(req.Port); err != nil {
		return nil, err
	}

	res := &Result{Kind: kind, Volume: req.Volume, Port: req.Port, SerialPort: s.serialPort(req.SerialPort)}
	cmd := device.Command{Volume: req.Volume, Port: req.Port, SerialPort: res.SerialPort}

	send, entryType := s.device.Extract, activity.TypeCommandExtract
	if kind == KindDispense {
		send, entryType = s.device.Dispense, activity.TypeCommandDispense
	}
	if err := send(ctx, cmd); err != nil {
		s.failed(ctx, tenantID, "", *res, err)
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	s.record(ctx, tenantID, &activity.ActivityEntry{
		ActivityType: entryType,
		Summary:      fmt.Sprintf("%s %g ul via port %d", kind, req.Volume, req.Port),
		Details:      detailsJSON(res),
	})
	return res, nil
}

func (s *Service) submitFailed(ctx context.Context, tenantID string, plan *protocol.Plan, index int, kind Kind, cmd device.Command, err error) error {
	step := plan.Steps[index]
	s.failed(ctx, tenantID, plan.TableID, Result{
		Kind:       kind,
		Volume:     cmd.Volume,
		Port:       cmd.Port,
		SerialPort: cmd.SerialPort,
	}, err)
	return fmt.Errorf("step %d (row %d) %s: %w", index+1, step.Row, kind, err)
}

func (s *Service) failed(ctx context.Context, tenantID, tableID string, res Result, err error) {
	s.logger.Warn("device command failed", "kind", res.Kind, "table_id", tableID, "error", err)
	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      tableID,
		ActivityType: activity.TypeCommandFailed,
		Summary:      fmt.Sprintf("%s failed: %v", res.Kind, err),
		Details:      detailsJSON(res),
	})
}

func (s *Service) serialPort(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.DefaultSerialPort
}

func (s *Service) record(ctx context.Context, tenantID string, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.activities.Log(ctx, tenantID, entry); err != nil {
		s.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
	}
}

func detailsJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
