package board

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/metrics"
)

// Wire names of the optimistically editable fields.
const (
	FieldProgress   = "completion_percentage"
	FieldAssignee   = "assigned_to"
	FieldTargetDate = "target_completion_date"
	FieldWeight     = "weight"
	FieldTitle      = "title"
)

// FieldEdit is a single-field change of a task. Build one with Progress,
// Assignee, TargetDate, Weight or Title.
type FieldEdit interface {
	// Field returns the wire name of the edited field.
	Field() string

	validate(t *domain.Task) error
	value() interface{}
	apply(t, server *domain.Task)
}

// Progress sets the manual completion percentage.
func Progress(n int) FieldEdit { return progressEdit{n: n} }

// Assignee sets or clears (nil) the assigned user.
func Assignee(userID *int64) FieldEdit { return assigneeEdit{id: userID} }

// TargetDate sets or clears (nil) the target completion date.
func TargetDate(d *domain.Date) FieldEdit { return dateEdit{date: d} }

// Weight sets the relative weight of a task within its parent.
func Weight(w float64) FieldEdit { return weightEdit{w: w} }

// Title renames a subtask.
func Title(s string) FieldEdit { return titleEdit{title: s} }

type progressEdit struct{ n int }

func (e progressEdit) Field() string { return FieldProgress }

func (e progressEdit) validate(*domain.Task) error {
	if e.n < 0 || e.n > domain.MaxManualProgress {
		return domain.NewValidationError([]string{
			fmt.Sprintf("%s: must be between 0 and %d", FieldProgress, domain.MaxManualProgress),
		})
	}
	return nil
}

func (e progressEdit) value() interface{} { return e.n }

func (e progressEdit) apply(t, _ *domain.Task) {
	n := e.n
	t.CompletionPercentage = &n
}

type assigneeEdit struct{ id *int64 }

func (e assigneeEdit) Field() string { return FieldAssignee }

func (e assigneeEdit) validate(*domain.Task) error {
	if e.id != nil && *e.id <= 0 {
		return domain.NewValidationError([]string{FieldAssignee + ": invalid user id"})
	}
	return nil
}

func (e assigneeEdit) value() interface{} {
	if e.id == nil {
		return nil
	}
	return *e.id
}

func (e assigneeEdit) apply(t, server *domain.Task) {
	if e.id == nil {
		t.AssignedTo = nil
		t.AssignedToName = ""
		return
	}
	id := *e.id
	t.AssignedTo = &id
	t.AssignedToName = ""
	if server != nil && server.AssignedTo != nil && *server.AssignedTo == id {
		t.AssignedToName = server.AssignedToName
	}
}

type dateEdit struct{ date *domain.Date }

func (e dateEdit) Field() string { return FieldTargetDate }

func (e dateEdit) validate(*domain.Task) error { return nil }

func (e dateEdit) value() interface{} {
	if e.date == nil {
		return nil
	}
	return e.date.String()
}

func (e dateEdit) apply(t, _ *domain.Task) {
	if e.date == nil {
		t.TargetCompletionDate = nil
		return
	}
	d := *e.date
	t.TargetCompletionDate = &d
}

type weightEdit struct{ w float64 }

func (e weightEdit) Field() string { return FieldWeight }

func (e weightEdit) validate(*domain.Task) error {
	if math.IsNaN(e.w) || math.IsInf(e.w, 0) || e.w < 0 {
		return domain.NewValidationError([]string{FieldWeight + ": must be zero or greater"})
	}
	return nil
}

func (e weightEdit) value() interface{} { return e.w }

func (e weightEdit) apply(t, _ *domain.Task) {
	w := e.w
	t.Weight = &w
}

type titleEdit struct{ title string }

func (e titleEdit) Field() string { return FieldTitle }

func (e titleEdit) validate(t *domain.Task) error {
	if strings.TrimSpace(e.title) == "" {
		return domain.NewValidationError([]string{FieldTitle + ": may not be blank"})
	}
	if !domain.CanEditTitle(t) {
		return domain.NewValidationError([]string{FieldTitle + ": only subtasks can be renamed"})
	}
	return nil
}

func (e titleEdit) value() interface{} { return strings.TrimSpace(e.title) }

func (e titleEdit) apply(t, _ *domain.Task) {
	t.Title = strings.TrimSpace(e.title)
}

// PendingPatch is a validated edit waiting for its PATCH response.
type PendingPatch struct {
	ID     domain.TaskID
	Edit   FieldEdit
	Fields map[string]interface{}
}

// Patch validates edit, sends it as a single-field PATCH and, on success,
// swaps the local snapshot for a copy carrying the new value. Nothing on the
// board changes when validation or the request fails, and the tree is never
// reloaded.
func (b *Board) Patch(ctx context.Context, id domain.TaskID, edit FieldEdit) (*domain.Task, error) {
	p, err := b.BeginPatch(id, edit)
	if err != nil {
		return nil, err
	}
	server, err := b.gateway.Patch(ctx, p.ID, p.Fields)
	return b.CompletePatch(p, server, err)
}

// BeginPatch validates edit against the local snapshot of id without any
// I/O. The caller sends p.Fields through the gateway and hands the response
// to CompletePatch.
func (b *Board) BeginPatch(id domain.TaskID, edit FieldEdit) (PendingPatch, error) {
	current, ok := b.Lookup(id)
	if !ok {
		return PendingPatch{}, domain.NewTaskNotFoundError(id)
	}
	if err := edit.validate(current); err != nil {
		b.metrics.RecordPatch(edit.Field(), metrics.OutcomeInvalid)
		return PendingPatch{}, err
	}
	return PendingPatch{
		ID:     id,
		Edit:   edit,
		Fields: map[string]interface{}{edit.Field(): edit.value()},
	}, nil
}

// CompletePatch applies the response of a pending patch. The edit is
// written onto the snapshot the board holds now, so changes applied while
// the request was in flight survive. A task dropped by a reload in the
// meantime is left alone and the server snapshot is returned.
func (b *Board) CompletePatch(p PendingPatch, server *domain.Task, err error) (*domain.Task, error) {
	field := p.Edit.Field()
	if err != nil {
		b.metrics.RecordPatch(field, metrics.OutcomeFailure)
		b.logger.Warn("patch failed", "task", p.ID, "field", field, "error", err)
		return nil, err
	}
	b.metrics.RecordPatch(field, metrics.OutcomeSuccess)

	current, ok := b.Lookup(p.ID)
	if !ok {
		b.logger.Debug("patched task left the board", "task", p.ID, "field", field)
		return server, nil
	}
	next := current.Clone()
	p.Edit.apply(next, server)
	b.Apply(next)

	b.logger.Debug("patch applied", "task", p.ID, "field", field)
	return next, nil
}
