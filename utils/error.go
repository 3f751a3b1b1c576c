package utils

import (
	"errors"
	"fmt"
)

type ServiceError struct {
	Code uint32
	Msg  string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ServiceError: code=%d, msg=%s", e.Code, e.Msg)
}

var (
	// business error code: [500000, 600000)
	ErrParameter      = &ServiceError{500005, "invalid parameter"}
	ErrColumnNotExist = &ServiceError{500006, "column not exist"}
	ErrWrongDataType  = &ServiceError{500003, "wrong data type"}
	ErrEmptyPointer   = &ServiceError{500004, "pointer is nil"}
	ErrEmptyTable     = &ServiceError{500010, "empty tuple table"}
	ErrGranularity    = &ServiceError{500012, "inconsistent granularity"}
	ErrTargetValues   = &ServiceError{500013, "inconsistent target values"}
	ErrAttributes     = &ServiceError{500014, "inconsistent attributes"}
	ErrParts          = &ServiceError{500015, "inconsistent parts"}
	ErrCells          = &ServiceError{500016, "inconsistent cells"}
	ErrOpenCsv        = &ServiceError{500020, "open csv failed"}
	ErrReadCsv        = &ServiceError{500021, "read csv failed"}
	ErrWriteCsv       = &ServiceError{500022, "write csv failed"}
	ErrTooManyTuples  = &ServiceError{500023, "too many tuples"}
)

// Code 取出错误链上的业务错误码，不是业务错误时返回0
func Code(err error) uint32 {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
