package session

import "errors"

var (
	ErrInvalidSchedule   = errors.New("scheduled time must be a valid timestamp in the future")
	ErrNotFound          = errors.New("candidate not found")
	ErrInvalidLink       = errors.New("invalid interview link")
	ErrNotYetStarted     = errors.New("interview has not started yet")
	ErrLinkExpired       = errors.New("interview link has expired")
	ErrSessionInactive   = errors.New("interview session is no longer active")
	ErrSessionNotFound   = errors.New("interview session not found")
	ErrSessionNotStarted = errors.New("interview session has not been started")
	ErrGenerationFailed  = errors.New("failed to generate the next question")
	ErrParseFailed       = errors.New("failed to parse evaluation")
	ErrConcurrentUpdate  = errors.New("interview session was updated concurrently")
)

// Reason returns the sentence shown to the candidate for an error raised by
// the manager. Unknown errors get a generic retry hint.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSchedule):
		return "Please choose a valid date and time in the future."
	case errors.Is(err, ErrNotFound):
		return "We could not find this candidate."
	case errors.Is(err, ErrInvalidLink):
		return "This interview link is invalid or has already been used."
	case errors.Is(err, ErrNotYetStarted):
		return "Your interview has not started yet. Please join at the scheduled time."
	case errors.Is(err, ErrLinkExpired):
		return "This interview link has expired. Please contact the hiring team to reschedule."
	case errors.Is(err, ErrSessionInactive):
		return "This interview session has ended."
	case errors.Is(err, ErrSessionNotFound):
		return "No interview has been scheduled for this candidate."
	case errors.Is(err, ErrSessionNotStarted):
		return "Please open your interview link before answering questions."
	case errors.Is(err, ErrGenerationFailed):
		return "We could not prepare the next question. Please try again."
	case errors.Is(err, ErrConcurrentUpdate):
		return "Your previous answer is still being processed. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
