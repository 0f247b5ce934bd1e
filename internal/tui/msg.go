package tui

import (
	"github.com/airyra/taskboard/internal/board"
	"github.com/airyra/taskboard/internal/domain"
	"github.com/airyra/taskboard/internal/lifecycle"
)

// Msg is the interface for all board messages.
//
//sumtype:decl
type Msg interface {
	sealed()
}

// MsgRootsLoaded carries the result of a root page fetch.
type MsgRootsLoaded struct {
	Page   *domain.TaskPage
	Err    error
	Ticket board.Ticket
}

func (MsgRootsLoaded) sealed() {}

// MsgChildrenLoaded carries the children of an expanded row.
type MsgChildrenLoaded struct {
	Children []*domain.Task
	Err      error
	Ticket   board.Ticket
}

func (MsgChildrenLoaded) sealed() {}

// MsgActionDone carries the outcome of a lifecycle action together with
// every snapshot the engine obtained.
type MsgActionDone struct {
	Action    domain.Action
	Result    *lifecycle.Result
	Snapshots []*domain.Task
	Err       error
}

func (MsgActionDone) sealed() {}

// MsgPatched carries the response of a field edit.
type MsgPatched struct {
	Patch  board.PendingPatch
	Task   *domain.Task
	Err    error
	Notice string
}

func (MsgPatched) sealed() {}
