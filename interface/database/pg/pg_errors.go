package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/airbusgeo/coverstore/internal/utils"
	"github.com/lib/pq"
)

// SQLSTATE codes handled by the backend (see postgres errcodes appendix)
const (
	connectionFailure pq.ErrorCode = "08006"
	uniqueViolation   pq.ErrorCode = "23505"
	undefinedTable    pq.ErrorCode = "42P01"
	noData            pq.ErrorCode = "02000"

	// pseudo-codes
	noError    pq.ErrorCode = ""
	notPqError pq.ErrorCode = "X"
)

// pqErrorCode returns the SQLSTATE of err, noData for sql.ErrNoRows
func pqErrorCode(err error) pq.ErrorCode {
	var pqerr *pq.Error
	switch {
	case err == nil:
		return noError
	case errors.As(err, &pqerr):
		return pqerr.Code
	case errors.Is(err, sql.ErrNoRows):
		return noData
	}
	return notPqError
}

// pqErrorFormat wraps err with fmt.Errorf(format, err), appends its SQLSTATE
// and marks the lost connections as temporary
func pqErrorFormat(format string, err error) error {
	code := pqErrorCode(err)
	ferr := fmt.Errorf(format, err)
	if code != notPqError {
		ferr = fmt.Errorf("%w [%s]", ferr, code)
	}
	if code == connectionFailure || lostConnection(err) {
		return utils.MakeTemporary(ferr)
	}
	return ferr
}

func lostConnection(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
