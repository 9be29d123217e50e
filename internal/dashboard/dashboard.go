// Package dashboard gathers every child's standing in every aspect and
// renders it as a table.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
)

// DefaultConcurrency bounds the progress requests in flight
const DefaultConcurrency = 4

// Backend is the part of the API client the dashboard needs
type Backend interface {
	ListChildren(ctx context.Context, parentID int) ([]*models.Child, error)
	ListRooms(ctx context.Context, supervisorID int) ([]*models.Room, error)
	RoomChildren(ctx context.Context, roomID int) ([]*models.Child, error)
	AssessmentProgress(ctx context.Context, childID int) ([]models.AspectProgress, error)
}

// Row is one child's line
type Row struct {
	Group    string
	Child    *models.Child
	Progress map[models.Aspect]models.AspectProgress
}

// Builder fetches dashboard rows
type Builder struct {
	backend     Backend
	concurrency int
	now         func() time.Time
}

// NewBuilder creates a builder. concurrency <= 0 selects DefaultConcurrency.
func NewBuilder(backend Backend, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Builder{backend: backend, concurrency: concurrency, now: time.Now}
}

// ForParent returns a row per child of the parent
func (b *Builder) ForParent(ctx context.Context, parentID int) ([]Row, error) {
	children, err := b.backend.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(children))
	for i, c := range children {
		rows[i] = Row{Child: c}
	}
	return rows, b.fill(ctx, rows)
}

// ForSupervisor returns a row per child of every room of the supervisor
func (b *Builder) ForSupervisor(ctx context.Context, supervisorID int) ([]Row, error) {
	rooms, err := b.backend.ListRooms(ctx, supervisorID)
	if err != nil {
		return nil, err
	}

	members := make([][]*models.Child, len(rooms))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for i, room := range rooms {
		eg.Go(func() error {
			children, err := b.backend.RoomChildren(egCtx, room.ID)
			if err != nil {
				return fmt.Errorf("room %s: %w", room.Name, err)
			}
			members[i] = children
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var rows []Row
	for i, room := range rooms {
		for _, c := range members[i] {
			rows = append(rows, Row{Group: room.Name, Child: c})
		}
	}
	return rows, b.fill(ctx, rows)
}

// fill loads the progress of every row concurrently
func (b *Builder) fill(ctx context.Context, rows []Row) error {
	today := b.now()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for i := range rows {
		row := &rows[i]
		row.Child.Age = age.Display(row.Child.Birthday, today)
		eg.Go(func() error {
			progress, err := b.backend.AssessmentProgress(egCtx, row.Child.ID)
			if err != nil {
				return fmt.Errorf("child %d: %w", row.Child.ID, err)
			}
			row.Progress = make(map[models.Aspect]models.AspectProgress, len(progress))
			for _, p := range progress {
				row.Progress[p.Aspect] = p
			}
			return nil
		})
	}
	return eg.Wait()
}

var statusColor = map[models.ProgressStatus]*color.Color{
	models.ProgressPassedAll:  color.New(color.FgGreen),
	models.ProgressInProgress: color.New(color.FgYellow),
	models.ProgressNotPassed:  color.New(color.FgRed),
}

// Cell renders one aspect as "passed/total", coloured by status
func Cell(p models.AspectProgress, ok bool) string {
	if !ok {
		return "-"
	}
	text := fmt.Sprintf("%d/%d", p.Passed, p.Total)
	if c, found := statusColor[p.Status]; found {
		return c.Sprint(text)
	}
	return text
}

// Render writes the rows as a table
func Render(w io.Writer, rows []Row) {
	grouped := false
	for _, r := range rows {
		if r.Group != "" {
			grouped = true
			break
		}
	}

	header := []string{"Child", "Nickname", "Age"}
	if grouped {
		header = append([]string{"Room"}, header...)
	}
	for _, a := range models.Aspects() {
		header = append(header, string(a))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)

	for _, r := range rows {
		line := []string{r.Child.Name, r.Child.NickName, r.Child.Age}
		if grouped {
			line = append([]string{r.Group}, line...)
		}
		for _, a := range models.Aspects() {
			p, ok := r.Progress[a]
			line = append(line, Cell(p, ok))
		}
		table.Append(line)
	}

	table.Render()
}
