package utils

import (
	"context"
	"errors"
	neturl "net/url"
	"syscall"
	"time"

	"google.golang.org/api/googleapi"
)

type temporary interface{ Temporary() bool }

type temporaryError struct{ error }

func (temporaryError) Temporary() bool { return true }
func (t temporaryError) Unwrap() error { return t.error }

// MakeTemporary marks err as transient: the operation that failed can be retried
func MakeTemporary(err error) error {
	if err == nil {
		return nil
	}
	return temporaryError{err}
}

// transientErrnos are the system errors worth a retry, whatever the syscall package says
var transientErrnos = map[syscall.Errno]struct{}{
	syscall.EIO:          {},
	syscall.EBUSY:        {},
	syscall.ECANCELED:    {},
	syscall.ECONNABORTED: {},
	syscall.ECONNRESET:   {},
	syscall.ENOMEM:       {},
	syscall.EPIPE:        {},
}

// Temporary walks the error chain and reports whether the failure is transient:
// marked with MakeTemporary, a transient errno, a 429/5xx google api error or a deadline.
func Temporary(err error) bool {
	if err == nil {
		return false
	}
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if _, ok := transientErrnos[errno]; ok {
			return true
		}
	}
	var tmp temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code/100 == 5
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Backoff waits base*2^retry, or until ctx is done (returning ctx.Err())
func Backoff(ctx context.Context, base time.Duration, retry int) error {
	if retry > 16 {
		retry = 16
	}
	t := time.NewTimer(base << uint(retry))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
