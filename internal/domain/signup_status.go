package domain

type SignupStatus string

const (
	SignupStatusIdle          SignupStatus = "IDLE"
	SignupStatusValidating    SignupStatus = "VALIDATING"
	SignupStatusRegistering   SignupStatus = "REGISTERING"
	SignupStatusAutoLoggingIn SignupStatus = "AUTO_LOGGING_IN"
	SignupStatusSuccess       SignupStatus = "SUCCESS"
)

func (s SignupStatus) IsTerminal() bool {
	return s == SignupStatusSuccess || s == SignupStatusIdle
}

// String representation (for logging)
func (s SignupStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a signup attempt may move from one status to
// another. Every failure exit leads back to Idle, where the visitor may resubmit.
func CanTransitionTo(from, to SignupStatus) bool {
	switch to {
	case SignupStatusValidating:
		return from == SignupStatusIdle
	case SignupStatusRegistering:
		return from == SignupStatusValidating
	case SignupStatusAutoLoggingIn:
		return from == SignupStatusRegistering
	case SignupStatusSuccess:
		return from == SignupStatusAutoLoggingIn
	case SignupStatusIdle:
		return from == SignupStatusValidating ||
			from == SignupStatusRegistering ||
			from == SignupStatusAutoLoggingIn
	}
	return false
}
