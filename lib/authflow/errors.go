package authflow

import "errors"

// Failure taxonomy for Acquire. Callers pick these apart with errors.Is to
// decide whether to page an operator or just retry the job later.
var (
	// the browser, its binary or the local configuration is defective,
	// retrying cannot help until the environment is fixed
	ErrEnvironment = errors.New("environment defect")
	// the remote service refused the credentials, retrying with the same
	// ones cannot help
	ErrLoginRejected = errors.New("login rejected")
	// the one-time code's validity window lapsed before the service
	// confirmed it, even after the single permitted retry
	ErrTotpWindowMissed = errors.New("totp window missed")
	// the flow never confirmed within its bound, the job as a whole may be
	// retried later
	ErrTimeout = errors.New("login flow timed out")
)
