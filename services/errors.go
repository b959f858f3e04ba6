package services

import "errors"

// Validation errors: surfaced to the actor, nothing mutated, nothing
// scheduled.
var (
	ErrInvalidTimeRange  = errors.New("task start time must be before its end time")
	ErrTaskNotStartedYet = errors.New("task has not reached its start time yet")
	ErrPhotoRequired     = errors.New("report requires a photo, but none was provided")
	ErrVideoRequired     = errors.New("report requires a video, but none was provided")
	ErrFileRequired      = errors.New("report requires a file, but none was provided")
)

// Authorization errors: wrong actor for the action.
var (
	ErrNotYourTask          = errors.New("task is assigned to a different executor")
	ErrExecutorCannotCancel = errors.New("executor may not cancel their own task")
)

// Already-terminal errors: the action arrived after the task (or
// checkpoint) was finished, so the actor gets a distinct "already
// handled" answer instead of a silent no-op.
var (
	ErrAlreadyConfirmedOrCanceled = errors.New("task is already confirmed or canceled")
	ErrTaskAlreadyFinished        = errors.New("task is already finished")
	ErrTaskNotConfirmed           = errors.New("task has not been confirmed yet")
	ErrCheckPointAlreadyCompleted = errors.New("checkpoint is already completed")
)
