// Package apierrors defines the error taxonomy shared by every service in the
// leaderboard service: a small set of error kinds, each carrying a stable
// numeric code and an HTTP status mapping, so that handlers never have to
// guess how to report a failure.
package apierrors

import (
	"fmt"
	"net/http"
)

// Kind identifies the broad class of an error.
type Kind string

const (
	KindToken   Kind = "token"
	KindUser    Kind = "user"
	KindRequest Kind = "request"
	KindDb      Kind = "db"
)

// Subkind refines RequestError and DbError.
type Subkind string

const (
	SubValidation     Subkind = "validation"
	SubJSONRejection  Subkind = "json_rejection"
	SubSignature      Subkind = "signature"
	SubCommon         Subkind = "common"
	SubSomethingWrong Subkind = "something_went_wrong"
	SubUniqueViolation Subkind = "unique_constraint_violation"
)

// Numeric codes are stable, user-facing identifiers independent of HTTP
// status — clients may match on these across releases.
const (
	CodeTokenInvalid        = 10001
	CodeUserNotFound        = 10002
	CodeRequestValidation   = 10003
	CodeRequestJSON         = 10004
	CodeRequestSignature    = 10005
	CodeRequestCommon       = 10006
	CodeDbSomethingWrong    = 10007
	CodeDbUniqueViolation   = 10008
)

// Error is the single error type returned across the service boundary. Kind
// and Subkind select the numeric code and HTTP status; Message is safe to
// surface to a client and never contains SQL text or internal detail.
type Error struct {
	Kind    Kind
	Subkind Subkind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Subkind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Subkind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCode maps the error to its HTTP status class.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindToken:
		return http.StatusUnauthorized
	case KindUser:
		return http.StatusNotFound
	case KindRequest:
		switch e.Subkind {
		case SubValidation, SubJSONRejection, SubSignature, SubCommon:
			return http.StatusBadRequest
		}
		return http.StatusBadRequest
	case KindDb:
		if e.Subkind == SubUniqueViolation {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Token builds a TokenError — bad or missing admin bearer token.
func Token(message string) *Error {
	return &Error{Kind: KindToken, Code: CodeTokenInvalid, Message: message}
}

// User builds a UserError — the referenced user/resource does not exist.
func User(message string) *Error {
	return &Error{Kind: KindUser, Code: CodeUserNotFound, Message: message}
}

// RequestValidation builds a RequestError/Validation — malformed request body.
func RequestValidation(message string) *Error {
	return &Error{Kind: KindRequest, Subkind: SubValidation, Code: CodeRequestValidation, Message: message}
}

// RequestJSON builds a RequestError/JsonRejection — body is not valid JSON.
func RequestJSON(message string) *Error {
	return &Error{Kind: KindRequest, Subkind: SubJSONRejection, Code: CodeRequestJSON, Message: message}
}

// RequestSignature builds a RequestError/Signature — signature mismatch or
// missing signing headers.
func RequestSignature(message string) *Error {
	return &Error{Kind: KindRequest, Subkind: SubSignature, Code: CodeRequestSignature, Message: message}
}

// RequestCommon builds a RequestError/Common — any other malformed-request case.
func RequestCommon(message string) *Error {
	return &Error{Kind: KindRequest, Subkind: SubCommon, Code: CodeRequestCommon, Message: message}
}

// DbSomethingWentWrong builds a DbError/SomethingWentWrong, wrapping cause
// without leaking it to the client-facing Message.
func DbSomethingWentWrong(cause error) *Error {
	return &Error{Kind: KindDb, Subkind: SubSomethingWrong, Code: CodeDbSomethingWrong, Message: "a database error occurred", cause: cause}
}

// DbUniqueViolation builds a DbError/UniqueConstraintViolation — the
// distinguishable duplicate-key signal required by the add-leaderboard path.
func DbUniqueViolation(cause error) *Error {
	return &Error{Kind: KindDb, Subkind: SubUniqueViolation, Code: CodeDbUniqueViolation, Message: "a config for this appid and rank_key already exists", cause: cause}
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
