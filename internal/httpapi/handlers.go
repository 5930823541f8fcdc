// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi

import (
	"net/http"

	"github.com/keystone-crm/keystone/internal/auth"
)

// Success messages.
const (
	MessageEmailVerified = "Successfully Verified Email."
	MessageCheckInbox    = "Check Your Inbox For Your Verification Code."
	MessageResetToken    = "Success, 5 Minutes To Change Password."
	MessagePasswordReset = "Password Successfully Updated."
	MessageLoggedOut     = "Successfully Logged Out."
)

type registrationRequest struct {
	Username  string `json:"username" validate:"required,max=64,alnummix"`
	Email     string `json:"email" validate:"required,max=254,email"`
	FirstName string `json:"first_name" validate:"required,max=100,alpha"`
	LastName  string `json:"last_name" validate:"required,max=100,alpha"`
	Age       int    `json:"age" validate:"required,gte=18,lte=100"`
	Password  string `json:"password" validate:"required,strongpassword"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,max=254,email"`
}

type codeRequest struct {
	Email            string `json:"email" validate:"required,max=254,email"`
	VerificationCode string `json:"verification_code" validate:"required,len=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type resetPasswordRequest struct {
	Password          string `json:"password" validate:"required,strongpassword"`
	ConfirmedPassword string `json:"confirmedPassword" validate:"required"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) error {
	var req registrationRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	_, err := a.svc.Register(r.Context(), auth.RegistrationInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (a *API) verifyEmail(w http.ResponseWriter, r *http.Request) error {
	var req codeRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	if err := a.svc.VerifyEmail(r.Context(), req.Email, req.VerificationCode); err != nil {
		return err
	}
	writeText(w, http.StatusOK, MessageEmailVerified)
	return nil
}

func (a *API) generateCode(w http.ResponseWriter, r *http.Request) error {
	var req emailRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	if err := a.svc.ResendVerificationCode(r.Context(), req.Email); err != nil {
		return err
	}
	writeText(w, http.StatusOK, MessageCheckInbox)
	return nil
}

func (a *API) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	token, err := a.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
	return nil
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) error {
	var req emailRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	if err := a.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		return err
	}
	writeText(w, http.StatusOK, MessageCheckInbox)
	return nil
}

func (a *API) verifyCode(w http.ResponseWriter, r *http.Request) error {
	var req codeRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	token, err := a.svc.VerifyResetCode(r.Context(), req.Email, req.VerificationCode)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, Message: MessageResetToken})
	return nil
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) error {
	var req resetPasswordRequest
	if err := a.decode(w, r, &req); err != nil {
		return err
	}
	if req.Password != req.ConfirmedPassword {
		return unprocessable(MessagePasswordsMustMatch)
	}
	if err := a.svc.ResetPassword(r.Context(), bearerToken(r), req.Password); err != nil {
		return err
	}
	writeText(w, http.StatusOK, MessagePasswordReset)
	return nil
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) error {
	if err := a.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		return err
	}
	writeText(w, http.StatusOK, MessageLoggedOut)
	return nil
}

// restricted only answers; the pipeline has already authorized the token.
func (a *API) restricted(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]bool{"authorized": true})
	return nil
}
