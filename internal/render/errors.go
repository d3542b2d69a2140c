package render

import "fmt"

// FailureReason classifies job-aborting conditions. Per-source and per-clip
// problems are flagged in the Result instead and never abort the job.
type FailureReason string

const (
	FailNoValidSources   FailureReason = "no_valid_sources"
	FailZeroTarget       FailureReason = "zero_target"
	FailOutputTooLarge   FailureReason = "output_too_large"
	FailInsufficientDisk FailureReason = "insufficient_disk"
	FailEmptySequence    FailureReason = "empty_sequence"
	FailNoClipsExtracted FailureReason = "no_clips_extracted"
	FailConcat           FailureReason = "concat_failed"
)

// Error is a fatal job failure with a stable reason code. Collaborator
// errors are wrapped, never surfaced raw.
type Error struct {
	Reason FailureReason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("render failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func fatal(reason FailureReason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

func fatalf(reason FailureReason, format string, args ...any) *Error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}
