package authflow

// login flow states, recorded as span events so a trace shows how far an
// attempt got
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateSubmittingCredentials
	StateSubmittingTotp
	StateAwaitingConfirmation
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateSubmittingCredentials:
		return "submitting_credentials"
	case StateSubmittingTotp:
		return "submitting_totp"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
