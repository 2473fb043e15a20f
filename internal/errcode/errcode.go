package errcode

// Wire-protocol error codes for job notifications:
// - 0: no error
// - 4xxx: recoverable/business errors
// - 5xxx: system errors that abort the job
const (
	OK                 = 0
	RenderTimeout      = 4408
	BrowserUnavailable = 5030
	SystemError        = 5000
)
