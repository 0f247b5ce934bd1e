package lifecycle

import (
	"fmt"

	"github.com/airyra/taskboard/internal/domain"
)

// PartialCompletionError reports a release that was published while the
// completion of its task failed. The release is not rolled back. Task is
// the refetched, still open snapshot, or nil when the refetch failed too.
type PartialCompletionError struct {
	Release *domain.Release
	Task    *domain.Task
	Err     error
}

func (e *PartialCompletionError) Error() string {
	return fmt.Sprintf("release %s published but the task was not completed: %v", e.Release.RevisionCode, e.Err)
}

func (e *PartialCompletionError) Unwrap() error {
	return e.Err
}

// UnconfirmedReleaseError reports a release that was published for a task
// whose snapshot could not be refetched afterwards.
type UnconfirmedReleaseError struct {
	Release *domain.Release
	Err     error
}

func (e *UnconfirmedReleaseError) Error() string {
	return fmt.Sprintf("release %s published but the task could not be refetched: %v", e.Release.RevisionCode, e.Err)
}

func (e *UnconfirmedReleaseError) Unwrap() error {
	return e.Err
}
