// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/keystone-crm/keystone/internal/auth"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// MessagePasswordsMustMatch rejects a reset whose two passwords differ.
const MessagePasswordsMustMatch = "Passwords Must Match."

// fieldMessages holds the client message for each field and constraint.
var fieldMessages = map[string]string{
	"email.required":             "Valid Email Required.",
	"email.email":                "Valid Email Required.",
	"email.max":                  "Valid Email Required.",
	"first_name.required":        "First Name Is Required.",
	"first_name.alpha":           "Must Only Consist Of Letters.",
	"first_name.max":             "First Name Is Too Long.",
	"last_name.required":         "Last Name Required.",
	"last_name.alpha":            "Must Only Consist Of Letters.",
	"last_name.max":              "Last Name Is Too Long.",
	"age.required":               "Age Required.",
	"age.gte":                    "Must Be Greater Than 18.",
	"age.lte":                    "Must Be Less Than 100",
	"age.type":                   "Age Must Be A Number.",
	"username.required":          "Username Is Required.",
	"username.alnummix":          auth.UsernamePolicyMessage,
	"username.max":               auth.UsernamePolicyMessage,
	"password.required":          "Password Is Required.",
	"password.max":               "Password Is Too Long.",
	"password.strongpassword":    auth.PasswordPolicyMessage,
	"confirmedPassword.required": "Password Is Required.",
	"verification_code.required": "Verification Code Required.",
	"verification_code.len":      "Verification Code Must Be 6 Characters.",
}

func constraintMessage(field, constraint string) string {
	return fieldMessages[field+"."+constraint]
}

// sanitizer is implemented by request bodies whose fields are cleaned after
// they pass validation.
type sanitizer interface {
	sanitize()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "strongpassword", func(fl validator.FieldLevel) bool {
		return auth.ValidatePassword(fl.Field().String()) == nil
	})
	mustRegister(v, "alnummix", func(fl validator.FieldLevel) bool {
		return auth.ValidateUsername(fl.Field().String()) == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("httpapi: register validation " + tag + ": " + err.Error())
	}
}

// decode reads the JSON body of r into dst, validates it and then sanitizes
// it. Unknown fields are rejected.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return &httpError{status: http.StatusBadRequest, message: "Malformed Request Body."}
	}

	if err := a.validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		fields := FieldErrors{}
		for _, fe := range ves {
			msg := constraintMessage(fe.Field(), fe.Tag())
			if msg == "" {
				msg = fe.Field() + " failed the " + fe.Tag() + " constraint"
			}
			fields.add(fe.Field(), fe.Tag(), msg)
		}
		return unprocessable(fields)
	}

	if s, ok := dst.(sanitizer); ok {
		s.sanitize()
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		fields := FieldErrors{}
		msg := constraintMessage(typeErr.Field, "type")
		if msg == "" {
			msg = typeErr.Field + " must be a " + typeErr.Type.String()
		}
		fields.add(typeErr.Field, "type", msg)
		return unprocessable(fields)
	case errors.As(err, &maxErr):
		return &httpError{status: http.StatusRequestEntityTooLarge, message: "Request Body Too Large."}
	case errors.Is(err, io.EOF):
		return &httpError{status: http.StatusBadRequest, message: "Request Body Required."}
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		field = strings.Trim(field, `"`)
		fields := FieldErrors{}
		fields.add(field, "whitelist", "property "+field+" should not exist")
		return unprocessable(fields)
	}
	return &httpError{status: http.StatusBadRequest, message: "Malformed Request Body."}
}
