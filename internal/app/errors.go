package app

import "errors"

var (
	// ErrConfig marks a missing or invalid setting. It is fatal and retrying
	// with the same environment will fail the same way.
	ErrConfig = errors.New("app: invalid configuration")
	// ErrDelivery marks a failure to fetch, render or send the digest.
	ErrDelivery = errors.New("app: digest delivery failed")
)

// ExitCode maps a run result to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
