// Package link turns the coprocessor's asynchronous association into an
// observable, retryable connection state machine.
//
// The machine is cooperative: it never starts goroutines or sleeps. The
// caller's own loop calls Tick periodically, and each tick issues at most one
// status poll. The connect timeout is therefore counted in ticks, not
// wall-clock time.
//
//	Idle -> Connecting -> Connected
//	Connecting -> ConnectFailed -> Connecting   (Begin again)
//	Connected -> Disconnected -> Connecting     (automatic, stored credentials)
//
// The machine never caps retries after ConnectFailed; that policy belongs to
// the caller. Supervisor is a ready-made loop with a caller-supplied attempt
// budget.
package link
