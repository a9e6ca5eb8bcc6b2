package response

import "errors"

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

//Error Codes
type ErrCode string

var (
	FAILED_REQUEST     ErrCode = "REQUEST_FAILED"
	BAD_REQUEST        ErrCode = "FAILED_TO_DECODE"
	NOT_FOUND          ErrCode = "NOT_FOUND"
	LOCKED             ErrCode = "LOCKED"
	CONFLICT           ErrCode = "SCHEDULING_CONFLICT"
	INSUFFICIENT_BREAK ErrCode = "INSUFFICIENT_BREAK"
	PAST_TIME          ErrCode = "PAST_TIME"
	DUPLICATE_REQUEST  ErrCode = "DUPLICATE_REQUEST"
	INVALID_STATE      ErrCode = "INVALID_STATE"
	INVALID_ID         ErrCode = "INVALID_ID"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidID        = errors.New("invalid id")
	ErrNotFound         = errors.New("resource not found")
	ErrLocked           = errors.New("resource is locked")
	ErrConflict         = errors.New("scheduling conflict")
	ErrPastTime         = errors.New("cannot book a slot in the past")
	ErrDuplicateRequest = errors.New("student already has a request at this time")
	ErrInvalidState     = errors.New("operation not allowed in current status")
)

func Error(code, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}
