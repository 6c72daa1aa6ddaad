package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultDashboardConcurrency bounds parallel backend calls per dashboard build.
const DefaultDashboardConcurrency = 4

// ParentBackend is the subset of the backend client the parent dashboard reads from.
// *apiclient.Client satisfies it.
type ParentBackend interface {
	MyChildren(ctx context.Context) (json.RawMessage, error)
	Attendance(ctx context.Context) (json.RawMessage, error)
	StudentMarks(ctx context.Context, studentID string) (json.RawMessage, error)
	ClassAssignments(ctx context.Context, classID string) (json.RawMessage, error)
}

// ChildOverview groups what a parent sees for one child. Payloads are passed through as received.
type ChildOverview struct {
	Child       json.RawMessage `json:"child"`
	Marks       json.RawMessage `json:"marks"`
	Assignments json.RawMessage `json:"assignments,omitempty"`
}

// ParentDashboard is the aggregated parent landing payload.
type ParentDashboard struct {
	Children   []ChildOverview `json:"children"`
	Attendance json.RawMessage `json:"attendance"`
}

// DashboardServiceOptions groups dependencies for DashboardService.
type DashboardServiceOptions struct {
	Concurrency int
	Logger      *slog.Logger
}

// DashboardService aggregates role dashboards from several backend listings.
type DashboardService struct {
	limit  int
	logger *slog.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(opts DashboardServiceOptions) *DashboardService {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultDashboardConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{limit: limit, logger: logger.With("component", "dashboard_service")}
}

// childRef holds the identifiers needed to fan out per child.
type childRef struct {
	ID          flexID `json:"id"`
	ClassRoomID flexID `json:"class_room_id"`
	ClassID     flexID `json:"class_id"`
}

func (c childRef) classID() string {
	if c.ClassRoomID != "" {
		return string(c.ClassRoomID)
	}
	return string(c.ClassID)
}

// flexID accepts identifiers encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// Parent builds the parent dashboard: the children list, then attendance plus per-child
// marks and assignments in parallel. The first failing call cancels the rest and is returned.
func (s *DashboardService) Parent(ctx context.Context, backend ParentBackend) (*ParentDashboard, error) {
	childrenRaw, err := backend.MyChildren(ctx)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}

	var children []json.RawMessage
	if err := json.Unmarshal(childrenRaw, &children); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}

	refs := make([]childRef, len(children))
	for i, raw := range children {
		if err := json.Unmarshal(raw, &refs[i]); err != nil {
			return nil, fmt.Errorf("decode child %d: %w", i, err)
		}
	}

	out := &ParentDashboard{Children: make([]ChildOverview, len(children))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	g.Go(func() error {
		att, err := backend.Attendance(gctx)
		if err != nil {
			return fmt.Errorf("list attendance: %w", err)
		}
		out.Attendance = att
		return nil
	})

	for i, ref := range refs {
		out.Children[i].Child = children[i]
		if ref.ID == "" {
			continue
		}
		g.Go(func() error {
			marks, err := backend.StudentMarks(gctx, string(ref.ID))
			if err != nil {
				return fmt.Errorf("marks for child %s: %w", ref.ID, err)
			}
			out.Children[i].Marks = marks
			return nil
		})
		if classID := ref.classID(); classID != "" {
			g.Go(func() error {
				assignments, err := backend.ClassAssignments(gctx, classID)
				if err != nil {
					return fmt.Errorf("assignments for class %s: %w", classID, err)
				}
				out.Children[i].Assignments = assignments
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "parent dashboard built", "children", len(children))
	return out, nil
}
