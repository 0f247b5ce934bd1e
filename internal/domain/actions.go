package domain

import "sort"

// Action names an operation the board may offer on a task.
type Action string

const (
	ActionStart      Action = "start"
	ActionComplete   Action = "complete"
	ActionUncomplete Action = "uncomplete"
	ActionSkip       Action = "skip"
	ActionUnskip     Action = "unskip"
	ActionBlock      Action = "block"
	ActionUnblock    Action = "unblock"
	ActionEdit       Action = "edit"

	// Department variants of the complete slot.
	ActionReleaseAndComplete Action = "release_and_complete"
	ActionCompleteRevision   Action = "complete_revision"
	ActionMarkDelivered      Action = "mark_delivered"

	// Revision workflow on a released design task.
	ActionSelfStartRevision Action = "self_start_revision"
	ActionRequestRevision   Action = "request_revision"
	ActionApproveRevision   Action = "approve_revision"
	ActionRejectRevision    Action = "reject_revision"

	ActionSubmitQC            Action = "qc_submit"
	ActionAssignSubcontractor Action = "assign_subcontractor"
)

// TransitionActions are the actions served by the department-task
// lifecycle endpoints.
var TransitionActions = []Action{
	ActionStart,
	ActionComplete,
	ActionUncomplete,
	ActionSkip,
	ActionUnskip,
	ActionBlock,
	ActionUnblock,
}

// IsTransition reports whether the action maps to a lifecycle endpoint.
func (a Action) IsTransition() bool {
	for _, v := range TransitionActions {
		if a == v {
			return true
		}
	}
	return false
}

// ActionSet is an unordered set of actions.
type ActionSet map[Action]struct{}

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	s := make(ActionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether the action is in the set.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the actions in lexical order.
func (s ActionSet) Sorted() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both sets hold the same actions.
func (s ActionSet) Equal(other ActionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for a := range s {
		if !other.Has(a) {
			return false
		}
	}
	return true
}

// AvailableActions computes the actions offered for a task. The result
// depends on the snapshot alone.
func AvailableActions(t *Task) ActionSet {
	set := NewActionSet()
	if t == nil {
		return set
	}

	if t.QCRequired && !t.Status.IsFinished() {
		set[ActionSubmitQC] = struct{}{}
	}
	if t.Department == DepartmentManufacturing &&
		(t.TaskType == TaskTypeWelding || t.TaskType == TaskTypePainting) &&
		t.Status != StatusSkipped {
		set[ActionAssignSubcontractor] = struct{}{}
	}

	if hidesLifecycle(t) {
		if deliverable(t) && !t.Status.IsFinished() {
			set[ActionMarkDelivered] = struct{}{}
		}
		return set
	}

	switch t.Status {
	case StatusPending:
		if t.CanStart {
			set[ActionStart] = struct{}{}
		}
		set[ActionBlock] = struct{}{}
		set[ActionSkip] = struct{}{}
		set[ActionEdit] = struct{}{}
	case StatusInProgress:
		if a, ok := completeSlot(t); ok {
			set[a] = struct{}{}
		}
		set[ActionBlock] = struct{}{}
		set[ActionSkip] = struct{}{}
		set[ActionEdit] = struct{}{}
	case StatusBlocked:
		set[ActionUnblock] = struct{}{}
		set[ActionSkip] = struct{}{}
		set[ActionEdit] = struct{}{}
	case StatusCompleted:
		if !deliverable(t) {
			set[ActionUncomplete] = struct{}{}
		}
	case StatusSkipped:
		set[ActionUnskip] = struct{}{}
	}

	for _, a := range revisionActions(t) {
		set[a] = struct{}{}
	}
	return set
}

// CompleteAction returns the action occupying the complete slot for the
// task, whether or not it is currently offered.
func CompleteAction(t *Task) Action {
	switch {
	case deliverable(t):
		return ActionMarkDelivered
	case t.Department == DepartmentDesign && t.IsUnderRevision:
		return ActionCompleteRevision
	case t.Department == DepartmentDesign && !t.IsSubtask() && t.CurrentReleaseID == nil:
		return ActionReleaseAndComplete
	}
	return ActionComplete
}

// CanAddSubtask reports whether subtasks may be created under the task.
func CanAddSubtask(t *Task) bool {
	if t == nil || t.ID.IsSynthetic() || hidesLifecycle(t) {
		return false
	}
	return !t.Status.IsFinished()
}

// CanEditTitle reports whether the title may be changed. Only subtask
// titles are editable.
func CanEditTitle(t *Task) bool {
	return t != nil && t.IsSubtask()
}

func completeSlot(t *Task) (Action, bool) {
	a := CompleteAction(t)
	if t.QCRequired && !t.HasQCApproval {
		return a, false
	}
	if a == ActionMarkDelivered && t.IsDelivered {
		return a, false
	}
	if a == ActionCompleteRevision && t.ActiveRevisionReleaseID == nil {
		return a, false
	}
	return a, true
}

func revisionActions(t *Task) []Action {
	if t.Department != DepartmentDesign || t.CurrentReleaseID == nil || t.IsUnderRevision {
		return nil
	}
	if t.Status == StatusSkipped {
		return nil
	}
	if t.HasPendingRevisionRequest {
		return []Action{ActionApproveRevision, ActionRejectRevision}
	}
	return []Action{ActionSelfStartRevision, ActionRequestRevision}
}

// hidesLifecycle covers part-level tasks whose progress is driven by
// other modules (machining, cnc cutting) and synthetic rows.
func hidesLifecycle(t *Task) bool {
	if t.ID.IsSynthetic() {
		return true
	}
	return t.TaskType == TaskTypeMachiningPart || t.TaskType == TaskTypeCNCPart
}

func deliverable(t *Task) bool {
	return t.TaskType == TaskTypeProcurementItem && t.PlanningItemID != nil
}
