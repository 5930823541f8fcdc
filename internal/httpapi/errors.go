// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/logging"
	"github.com/keystone-crm/keystone/pkg/errutil"
)

// MessageInternal is the only message a client sees for a server fault.
const MessageInternal = "An Unexpected Problem Occurred."

// ErrorBody is the JSON body of every non-2xx response. Message is a string,
// or for 422 a map of field to constraint to message.
type ErrorBody struct {
	Status     int    `json:"status"`
	Message    any    `json:"message"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// FieldErrors maps field to constraint to message.
type FieldErrors map[string]map[string]string

func (f FieldErrors) add(field, constraint, msg string) {
	if f[field] == nil {
		f[field] = make(map[string]string)
	}
	f[field][constraint] = msg
}

// httpError is a rejection raised by the pipeline itself rather than by the
// auth service.
type httpError struct {
	status     int
	message    any
	retryAfter time.Duration
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s: %v", e.status, http.StatusText(e.status), e.message)
}

func unprocessable(message any) error {
	return &httpError{status: http.StatusUnprocessableEntity, message: message}
}

type rejection struct {
	status  int
	message string
}

var rejections = map[string]rejection{
	auth.CodeUsernameEmailTaken:    {http.StatusBadRequest, "Username and Email Already Associated With A Different Account."},
	auth.CodeUsernameTaken:         {http.StatusBadRequest, "Username Already Associated With Another Account."},
	auth.CodeEmailTaken:            {http.StatusBadRequest, "Email Already Associated With Another Account."},
	auth.CodeAccountNotFound:       {http.StatusBadRequest, "Account Not Found."},
	auth.CodeVerifyAccountNotFound: {http.StatusBadRequest, "Account Not Found. Restart Process."},
	auth.CodeAlreadyVerified:       {http.StatusBadRequest, "Account Already Verified. Proceed To Sign In."},
	auth.CodeCodeExpired:           {http.StatusBadRequest, "Code Expired, Click Button To Generate A New Code."},

	auth.CodeInvalidCredentials: {http.StatusForbidden, "Username Or Password Is Incorrect."},
	auth.CodeEmailNotVerified:   {http.StatusForbidden, "Email Not Verified. Check Your Inbox For A Verification Code."},
	auth.CodeCodeUnavailable:    {http.StatusForbidden, "Verification Code Either Does Not Exist Or Is Expired."},
	auth.CodeCodeMismatch:       {http.StatusForbidden, "Invalid Verification Code."},

	auth.CodeTokenRequired:         {http.StatusUnauthorized, "Token Required."},
	auth.CodeTokenRevoked:          {http.StatusUnauthorized, "Invalid Token."},
	auth.CodeTokenExpired:          {http.StatusUnauthorized, "jwt expired"},
	auth.CodeTokenMalformed:        {http.StatusUnauthorized, "jwt malformed"},
	auth.CodeTokenSignatureInvalid: {http.StatusUnauthorized, "invalid signature"},
	auth.CodeTokenInvalid:          {http.StatusUnauthorized, "Invalid Token."},
	auth.CodeTokenRoleForbidden:    {http.StatusUnauthorized, "Invalid Token."},
}

// classify maps err to the status and client message of its response.
func classify(err error) (int, any) {
	var he *httpError
	if errors.As(err, &he) {
		return he.status, he.message
	}
	code := errutil.Code(err)
	if code == auth.CodeValidation {
		return http.StatusUnprocessableEntity, serviceFieldErrors(err)
	}
	if r, ok := rejections[code]; ok {
		return r.status, r.message
	}
	return http.StatusInternalServerError, MessageInternal
}

// serviceFieldErrors renders an AUTH_VALIDATION error from the service in
// the same shape as request validation failures.
func serviceFieldErrors(err error) FieldErrors {
	ctx := errutil.Context(err)
	field, _ := ctx["field"].(string)
	constraint, _ := ctx["constraint"].(string)
	if field == "" {
		field = "body"
	}
	if constraint == "" {
		constraint = "invalid"
	}
	msg := constraintMessage(field, constraint)
	if msg == "" {
		msg = err.Error()
	}
	out := FieldErrors{}
	out.add(field, constraint, msg)
	return out
}

// fail writes the error response for err. Server faults are logged with
// their cause; the client only sees MessageInternal.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), a.logger, "request failed", err)
	} else {
		a.logger.DebugContext(r.Context(), "request rejected",
			"status", status, "code", errutil.Code(err))
	}

	body := ErrorBody{
		Status:    status,
		Message:   message,
		Path:      r.URL.Path,
		Method:    r.Method,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		RequestID: logging.RequestID(r.Context()),
	}
	var he *httpError
	if errors.As(err, &he) && he.retryAfter > 0 {
		secs := seconds(he.retryAfter)
		body.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeJSON(w, status, body)
}

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text)) //nolint:errcheck // client went away
}
