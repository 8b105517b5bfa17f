package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cavrolab/flowpanel/internal/domain/activity"
	"github.com/cavrolab/flowpanel/internal/domain/reconcile"
	"github.com/google/uuid"
)

// Service owns the protocol tables of every tenant. Tables live in memory;
// mutations of one table are serialized by that table's lock.
type Service struct {
	mu         sync.RWMutex
	tenants    map[string]map[string]*table
	activities ActivityRepository
	opts       reconcile.Options
	logger     *slog.Logger
}

// NewService creates a new protocol service. activities may be nil.
func NewService(activities ActivityRepository, opts reconcile.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		tenants:    make(map[string]map[string]*table),
		activities: activities,
		opts:       opts,
		logger:     logger,
	}
}

// CreateTableRequest defines table creation inputs.
type CreateTableRequest struct {
	Name string
	// Rows is the number of empty rows to start with.
	Rows int
}

// EditFieldRequest describes a single field edit.
type EditFieldRequest struct {
	TableID string
	Row     int
	Field   string
	Value   string
}

// SetRouteRequest selects the source and destination ports of a row.
type SetRouteRequest struct {
	TableID  string
	Row      int
	FromPort int
	ToPort   int
}

// SetCycleRequest sets the cycle marker and repeat count of a row.
type SetCycleRequest struct {
	TableID string
	Row     int
	Marker  string
	Repeat  int
}

// CreateTable creates an empty protocol table.
func (s *Service) CreateTable(ctx context.Context, tenantID string, req CreateTableRequest) (*TableView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if err := ValidateRowCount(req.Rows); err != nil {
		return nil, err
	}

	t := &table{
		id:        uuid.NewString(),
		tenantID:  tenantID,
		name:      name,
		createdAt: time.Now(),
	}
	for i := 0; i < req.Rows; i++ {
		t.addRow(s.opts)
	}

	s.mu.Lock()
	tables, ok := s.tenants[tenantID]
	if !ok {
		tables = make(map[string]*table)
		s.tenants[tenantID] = tables
	}
	tables[t.id] = t
	s.mu.Unlock()

	t.mu.Lock()
	tick := t.bump()
	view := t.view()
	t.mu.Unlock()

	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      t.id,
		ActivityType: activity.TypeTableCreated,
		Summary:      fmt.Sprintf("created table %q", name),
		Tick:         tick,
	})
	return &view, nil
}

// GetTable returns a snapshot of a table.
func (s *Service) GetTable(ctx context.Context, tenantID, tableID string) (*TableView, error) {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	view := t.view()
	return &view, nil
}

// ListTables returns the tenant's tables, oldest first.
func (s *Service) ListTables(ctx context.Context, tenantID string) ([]TableSummary, error) {
	s.mu.RLock()
	tables := make([]*table, 0, len(s.tenants[tenantID]))
	for _, t := range s.tenants[tenantID] {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	summaries := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		t.mu.Lock()
		summaries = append(summaries, t.summary())
		t.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// CloseTable discards a table together with every row's state.
func (s *Service) CloseTable(ctx context.Context, tenantID, tableID string) error {
	s.mu.Lock()
	t, ok := s.tenants[tenantID][tableID]
	if ok {
		delete(s.tenants[tenantID], tableID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrTableNotFound
	}

	t.mu.Lock()
	tick := t.bump()
	name := t.name
	t.mu.Unlock()

	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      tableID,
		ActivityType: activity.TypeTableClosed,
		Summary:      fmt.Sprintf("closed table %q", name),
		Tick:         tick,
	})
	return nil
}

// AddRow appends a fresh row: numeric fields zero, ports 1 and 9, no cycle.
func (s *Service) AddRow(ctx context.Context, tenantID, tableID string) (*RowView, error) {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if err := ValidateRowCount(len(t.rows) + 1); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	r := t.addRow(s.opts)
	tick := t.bump()
	view := r.view()
	t.mu.Unlock()

	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      tableID,
		RowIndex:     &view.Index,
		ActivityType: activity.TypeRowAdded,
		Summary:      fmt.Sprintf("added row %d", view.Index),
		Tick:         tick,
	})
	return &view, nil
}

// RemoveRow removes a row. Its index is not handed out again.
func (s *Service) RemoveRow(ctx context.Context, tenantID, tableID string, index int) error {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if err := t.removeRow(index); err != nil {
		t.mu.Unlock()
		return err
	}
	tick := t.bump()
	t.mu.Unlock()

	s.record(ctx, tenantID, &activity.ActivityEntry{
		TableID:      tableID,
		RowIndex:     &index,
		ActivityType: activity.TypeRowRemoved,
		Summary:      fmt.Sprintf("removed row %d", index),
		Tick:         tick,
	})
	return nil
}

// EditField stores raw text into one field of a row and reconciles the
// row's remaining quantities.
func (s *Service) EditField(ctx context.Context, tenantID string, req EditFieldRequest) (*EditResult, error) {
	field, err := reconcile.ParseField(req.Field)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	t, err := s.lookup(tenantID, req.TableID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	r, err := t.row(req.Row)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	res, err := r.ctrl.OnEdit(field, req.Value)
	if err != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := &EditResult{
		TableID: req.TableID,
		Tick:    t.bump(),
		Result:  res,
		Row:     r.view(),
	}
	t.mu.Unlock()

	if res.OverwroteEdit {
		s.logger.Warn("edited value overwritten by fallback recompute",
			"table_id", req.TableID,
			"row", req.Row,
			"field", string(field),
			"typed", req.Value,
			"written", out.Row.Values.Get(field),
		)
		details, _ := json.Marshal(map[string]string{
			"field":   string(field),
			"typed":   req.Value,
			"written": out.Row.Values.Get(field),
		})
		s.record(ctx, tenantID, &activity.ActivityEntry{
			TableID:      req.TableID,
			RowIndex:     &out.Row.Index,
			ActivityType: activity.TypeReconcileOverwrite,
			Summary:      fmt.Sprintf("row %d: %s overwritten by fallback recompute", req.Row, field),
			Details:      string(details),
			Tick:         out.Tick,
		})
	}
	s.logger.Debug("field edited",
		"table_id", req.TableID,
		"row", req.Row,
		"field", string(field),
		"target", res.Target.String(),
		"applied", res.Applied.String(),
	)
	return out, nil
}

// SetRoute selects the source and destination ports of a row.
func (s *Service) SetRoute(ctx context.Context, tenantID string, req SetRouteRequest) (*RowView, error) {
	if err := ValidatePort(req.FromPort); err != nil {
		return nil, err
	}
	if err := ValidatePort(req.ToPort); err != nil {
		return nil, err
	}
	return s.mutateRow(tenantID, req.TableID, req.Row, func(r *row) {
		r.fromPort = req.FromPort
		r.toPort = req.ToPort
	})
}

// SetCycle sets the cycle marker and repeat count of a row. Balanced
// start/end pairs are not required.
func (s *Service) SetCycle(ctx context.Context, tenantID string, req SetCycleRequest) (*RowView, error) {
	marker, err := ParseCycleMarker(req.Marker)
	if err != nil {
		return nil, err
	}
	if err := ValidateRepeat(req.Repeat); err != nil {
		return nil, err
	}
	return s.mutateRow(tenantID, req.TableID, req.Row, func(r *row) {
		r.cycle = marker
		r.repeat = req.Repeat
	})
}

// Payload serializes the table into parallel arrays in row index order.
func (s *Service) Payload(ctx context.Context, tenantID, tableID string) (*Payload, error) {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	rows := t.rowViews()
	t.mu.Unlock()

	p := BuildPayload(rows)
	return &p, nil
}

// Plan expands the table into its ordered transfer steps.
func (s *Service) Plan(ctx context.Context, tenantID, tableID string) (*Plan, error) {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	rows := t.rowViews()
	tick := t.tick
	t.mu.Unlock()

	if n := CountSteps(rows); n > MaxSteps {
		return nil, fmt.Errorf("%w: protocol expands to %d steps (max %d)", ErrInvalidInput, n, MaxSteps)
	}
	return &Plan{
		TableID: tableID,
		Tick:    tick,
		Steps:   ExpandSteps(rows),
	}, nil
}

func (s *Service) lookup(tenantID, tableID string) (*table, error) {
	if strings.TrimSpace(tableID) == "" {
		return nil, ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID][tableID]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

func (s *Service) mutateRow(tenantID, tableID string, index int, fn func(*row)) (*RowView, error) {
	t, err := s.lookup(tenantID, tableID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	r, err := t.row(index)
	if err != nil {
		return nil, err
	}
	fn(r)
	t.bump()
	view := r.view()
	return &view, nil
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
