package extractor

import "strings"

type Kind int

const (
	// KindUnreachable covers network and upstream failures, safe to retry.
	KindUnreachable Kind = iota
	// KindRestricted means the source wants elevated credentials.
	KindRestricted
	// KindNotFound means extraction worked but the video is gone.
	KindNotFound
	// KindMalformed means the source URL itself is invalid or unsupported.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRestricted:
		return "restricted"
	case KindNotFound:
		return "not_found"
	case KindMalformed:
		return "malformed"
	default:
		return "unreachable"
	}
}

type Error struct {
	Kind Kind
	Msg  string

	cause error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// classify maps the extractor binary's stderr output onto an error kind with
// a message that tells the caller what to do about it.
func classify(stderr string, cause error) *Error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "Sign in to confirm"), strings.Contains(lower, "bot"):
		return &Error{
			Kind:  KindRestricted,
			Msg:   "source bot-detection triggered, configure a cookies file with valid session cookies",
			cause: cause,
		}
	case strings.Contains(lower, "age"):
		return &Error{
			Kind:  KindRestricted,
			Msg:   "age-restricted video, configure a cookies file from a verified account",
			cause: cause,
		}
	case strings.Contains(msg, "Private video"):
		return &Error{
			Kind:  KindRestricted,
			Msg:   "private video, needs cookies from an account with access",
			cause: cause,
		}
	case strings.Contains(lower, "members"):
		return &Error{
			Kind:  KindRestricted,
			Msg:   "members-only video, needs cookies from a member account",
			cause: cause,
		}
	case strings.Contains(lower, "unsupported url"), strings.Contains(lower, "not a valid url"):
		return &Error{
			Kind:  KindMalformed,
			Msg:   "unsupported or invalid source URL",
			cause: cause,
		}
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "does not exist"), strings.Contains(lower, "not available"):
		return &Error{
			Kind:  KindNotFound,
			Msg:   "video unavailable: " + msg,
			cause: cause,
		}
	}

	if msg == "" && cause != nil {
		msg = cause.Error()
	}

	return &Error{
		Kind:  KindUnreachable,
		Msg:   "extraction failed: " + msg,
		cause: cause,
	}
}
