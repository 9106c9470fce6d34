package conn

// Code identifies the outcome of a command. Commands return outcomes rather
// than errors: expected failures (a rejected popup, an exhausted retry
// budget) are results, not exceptions.
type Code string

const (
	CodeConnected        Code = "connected"
	CodeAlreadyConnected Code = "already_connected"
	CodeDisconnected     Code = "disconnected"
	CodeSwitched         Code = "switched"

	// CodeBusy: another attempt is in flight; only one runs system-wide.
	CodeBusy Code = "busy"
	// CodeMaxRetries: the retry budget for this wallet is exhausted. Terminal
	// until a success or an explicit reset; the UI should disable attempts.
	CodeMaxRetries Code = "max_retries"
	// CodePending: the wallet already has an approval popup open. Logged
	// only, never counted as a retry-worthy failure.
	CodePending Code = "pending"
	// CodeDiscarded: the attempt finished after a disconnect superseded it.
	CodeDiscarded Code = "discarded"

	CodeFailed        Code = "failed"
	CodeNoSession     Code = "no_session"
	CodeExpired       Code = "expired"
	CodeNotConnected  Code = "not_connected"
	CodeUnknownWallet Code = "unknown_wallet"
)

// Result is the outcome value returned by every controller command.
type Result struct {
	OK        bool
	Code      Code
	Message   string
	AttemptID string // correlates log lines for one attempt
	State     State
}
