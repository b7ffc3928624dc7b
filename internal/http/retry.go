package http

import (
	"context"
	"errors"
	"math/rand"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/notanas/notanas-cli/internal/constants"
)

// ErrorType represents different classes of failures for the retry strategy
type ErrorType int

const (
	// ErrorTypeSuccess indicates the request succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeAuth indicates the session was rejected (401)
	ErrorTypeAuth
	// ErrorTypeNetwork indicates the request never got an answer
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates a transient server condition (429, 5xx)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates a client error that repeating will not fix (other 4xx)
	ErrorTypeFatal
)

// String returns a readable name for logs.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps a response or transport error onto an ErrorType.
func Classify(resp *nethttp.Response, err error) ErrorType {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrorTypeFatal
		}
		return ErrorTypeNetwork
	}
	if resp == nil {
		return ErrorTypeNetwork
	}

	switch {
	case resp.StatusCode < 400:
		return ErrorTypeSuccess
	case resp.StatusCode == nethttp.StatusUnauthorized:
		return ErrorTypeAuth
	case resp.StatusCode == nethttp.StatusTooManyRequests:
		return ErrorTypeRetryable
	case resp.StatusCode >= 500 && resp.StatusCode != nethttp.StatusNotImplemented:
		return ErrorTypeRetryable
	default:
		return ErrorTypeFatal
	}
}

// CheckRetry is the retryablehttp policy: transport failures, 429 and 5xx are
// retried, everything else (401 in particular) is returned to the caller at once.
func CheckRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	switch Classify(resp, err) {
	case ErrorTypeNetwork, ErrorTypeRetryable:
		return true, nil
	default:
		return false, nil
	}
}

// CalculateBackoff returns exponential backoff with full jitter:
// random(0, min(maxDelay, initialDelay * 2^attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}
	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// Backoff adapts CalculateBackoff to retryablehttp, honouring Retry-After on 429/503.
func Backoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && (resp.StatusCode == nethttp.StatusTooManyRequests || resp.StatusCode == nethttp.StatusServiceUnavailable) {
		return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	}
	return CalculateBackoff(attemptNum+1, min, max)
}

// RetryOptions tunes NewRetryClient.
type RetryOptions struct {
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
}

// DefaultRetryOptions returns the standard retry budget.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: constants.MaxRetries,
		WaitMin:    constants.RetryInitialDelay,
		WaitMax:    constants.RetryMaxDelay,
	}
}

// NewRetryClient wraps base in a retryablehttp client using CheckRetry and
// Backoff. After the last attempt the final response is handed back unchanged
// so that callers can inspect its status.
func NewRetryClient(base *nethttp.Client, logger *zerolog.Logger, opts RetryOptions) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = opts.WaitMin
	rc.RetryWaitMax = opts.WaitMax
	rc.CheckRetry = CheckRetry
	rc.Backoff = Backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		rc.Logger = &RetryLogger{log: logger}
	} else {
		rc.Logger = nil
	}
	return rc
}

// RetryLogger adapts zerolog to retryablehttp.LeveledLogger.
type RetryLogger struct {
	log *zerolog.Logger
}

func (l *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l *RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
