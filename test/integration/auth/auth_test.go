// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

//go:build integration

package auth_test

import (
	"fmt"
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/httpapi"
)

var _ = Describe("Auth API on PostgreSQL", func() {
	var n int
	unique := func(prefix string) (string, string) {
		n++
		name := fmt.Sprintf("%s%d", prefix, n)
		return name, name + "@example.com"
	}

	Describe("registration and email verification", func() {
		It("verifies the email with the mailed code", func() {
			username, email := unique("ada")
			status, _ := call(http.MethodPost, "/registration", registration(username, email), "")
			Expect(status).To(Equal(http.StatusCreated))

			code := env.mailer.code(email, auth.PurposeEmailVerify)
			Expect(code).To(HaveLen(auth.CodeLength))

			status, body := call(http.MethodPost, "/verify-email",
				map[string]string{"email": email, "verification_code": code}, "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal(httpapi.MessageEmailVerified))

			var verified bool
			Expect(env.pool.QueryRow(env.ctx,
				`SELECT email_verified FROM accounts WHERE email = $1`, email).Scan(&verified)).To(Succeed())
			Expect(verified).To(BeTrue())

			By("refusing a second verification")
			status, _ = call(http.MethodPost, "/verify-email",
				map[string]string{"email": email, "verification_code": code}, "")
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("refuses login until the email is verified", func() {
			username, email := unique("early")
			status, _ := call(http.MethodPost, "/registration", registration(username, email), "")
			Expect(status).To(Equal(http.StatusCreated))

			login := map[string]string{"username": username, "password": "Abc123!@"}
			status, _ = call(http.MethodPost, "/login", login, "")
			Expect(status).To(Equal(http.StatusForbidden))

			status, _ = call(http.MethodPost, "/verify-email",
				map[string]string{"email": email, "verification_code": env.mailer.code(email, auth.PurposeEmailVerify)}, "")
			Expect(status).To(Equal(http.StatusOK))

			status, body := call(http.MethodPost, "/login", login, "")
			Expect(status).To(Equal(http.StatusOK))
			Expect(tokenFrom(body)).NotTo(BeEmpty())
		})

		It("accepts exactly one of many concurrent registrations for one username", func() {
			username, _ := unique("race")
			const attempts = 8
			statuses := make([]int, attempts)
			var wg sync.WaitGroup
			for i := range attempts {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					statuses[i], _ = call(http.MethodPost, "/registration",
						registration(username, fmt.Sprintf("%s.%d@example.com", username, i)), "")
				}()
			}
			wg.Wait()

			var created int
			for _, s := range statuses {
				if s == http.StatusCreated {
					created++
				} else {
					Expect(s).To(Equal(http.StatusBadRequest))
				}
			}
			Expect(created).To(Equal(1))
		})
	})

	Describe("password reset", func() {
		It("keeps one valid code and swaps the password", func() {
			username, email := unique("reset")
			registerVerified(username, email)

			for range 3 {
				status, _ := call(http.MethodPost, "/change-password", map[string]string{"email": email}, "")
				Expect(status).To(Equal(http.StatusOK))
			}
			var valid int
			Expect(env.pool.QueryRow(env.ctx,
				`SELECT count(*) FROM verification_codes WHERE email = $1 AND purpose = $2 AND is_valid`,
				email, string(auth.PurposePasswordReset)).Scan(&valid)).To(Succeed())
			Expect(valid).To(Equal(1))

			code := env.mailer.code(email, auth.PurposePasswordReset)
			status, body := call(http.MethodPost, "/verify-code",
				map[string]string{"email": email, "verification_code": code}, "")
			Expect(status).To(Equal(http.StatusOK))
			resetToken := tokenFrom(body)

			status, _ = call(http.MethodPost, "/reset-password",
				map[string]string{"password": "Xyz789#$", "confirmedPassword": "Xyz789#$"}, resetToken)
			Expect(status).To(Equal(http.StatusOK))

			By("treating the reset token as spent")
			status, _ = call(http.MethodPost, "/reset-password",
				map[string]string{"password": "Qrs456%^", "confirmedPassword": "Qrs456%^"}, resetToken)
			Expect(status).To(Equal(http.StatusUnauthorized))

			status, _ = call(http.MethodPost, "/login", map[string]string{"username": username, "password": "Abc123!@"}, "")
			Expect(status).To(Equal(http.StatusForbidden))
			status, _ = call(http.MethodPost, "/login", map[string]string{"username": username, "password": "Xyz789#$"}, "")
			Expect(status).To(Equal(http.StatusOK))
		})
	})

	Describe("logout", func() {
		It("revokes the token for good", func() {
			username, email := unique("bye")
			registerVerified(username, email)

			status, body := call(http.MethodPost, "/login", map[string]string{"username": username, "password": "Abc123!@"}, "")
			Expect(status).To(Equal(http.StatusOK))
			token := tokenFrom(body)

			status, _ = call(http.MethodGet, "/restricted", nil, token)
			Expect(status).To(Equal(http.StatusOK))

			status, body = call(http.MethodGet, "/logout", nil, token)
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal(httpapi.MessageLoggedOut))

			var revoked bool
			Expect(env.pool.QueryRow(env.ctx,
				`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token).Scan(&revoked)).To(Succeed())
			Expect(revoked).To(BeTrue())

			status, _ = call(http.MethodGet, "/restricted", nil, token)
			Expect(status).To(Equal(http.StatusUnauthorized))
			status, _ = call(http.MethodGet, "/logout", nil, token)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})
})
