package engine

import "errors"

// Every failure the engine can report to its caller. All of them are
// recoverable; none should ever surface as a crash.
var (
	// ErrSessionAlreadyActive: Start was called while the user still has a
	// session in flight. The existing session is untouched.
	ErrSessionAlreadyActive = errors.New("session already active")

	// ErrNoQuestionsAvailable: the question provider returned no usable
	// questions for the requested topic and difficulty.
	ErrNoQuestionsAvailable = errors.New("no questions available")

	// ErrNoActiveSession: SubmitAnswer or Cancel with nothing in flight.
	ErrNoActiveSession = errors.New("no active session")

	// ErrStaleAnswer: the answer lost the race against the question's
	// deadline. Not a defect, just a normal race outcome; the timeout path
	// has already advanced the session.
	ErrStaleAnswer = errors.New("answer arrived after the deadline")
)
