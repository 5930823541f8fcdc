// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/keystone-crm/keystone/internal/auth"
)

func TestScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth HTTP Scenarios")
}

var _ = Describe("Auth HTTP scenarios", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness(GinkgoT())
	})

	Describe("registration followed by a duplicate", func() {
		It("creates the account once and rejects the repeat", func() {
			body := registration("jdoe1", "j@x.com")

			rec := h.post("/api/auth/registration", body)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = h.post("/api/auth/registration", body)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(GinkgoT(), rec).Message).To(
				Equal("Username and Email Already Associated With A Different Account."))
		})
	})

	Describe("code supersession", func() {
		It("keeps only the latest of four reset codes valid", func() {
			h.registerAndLogin("adoe1", "a@x.com")

			var sent []string
			for range 4 {
				rec := h.post("/api/auth/change-password", map[string]any{"email": "a@x.com"})
				Expect(rec.Code).To(Equal(http.StatusOK))
				sent = append(sent, h.mailer.code("a@x.com", auth.PurposePasswordReset))
			}
			Expect(h.store.Codes.ValidCount("a@x.com", auth.PurposePasswordReset)).To(Equal(1))

			latest, err := h.store.Codes.Latest(context.Background(), "a@x.com", auth.PurposePasswordReset)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Code).To(Equal(sent[3]))
			Expect(latest.IsValid).To(BeTrue())
		})
	})

	Describe("wrong code retry", func() {
		It("rejects a wrong code and still accepts the right one", func() {
			h.registerAndLogin("jdoe1", "j@x.com")
			Expect(h.post("/api/auth/change-password", map[string]any{"email": "j@x.com"}).Code).
				To(Equal(http.StatusOK))
			code := h.mailer.code("j@x.com", auth.PurposePasswordReset)

			rec := h.post("/api/auth/verify-code", map[string]any{"email": "j@x.com", "verification_code": "000000"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(GinkgoT(), rec).Message).To(Equal("Invalid Verification Code."))

			h.clock.Advance(time.Minute)
			rec = h.post("/api/auth/verify-code", map[string]any{"email": "j@x.com", "verification_code": code})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodeToken(GinkgoT(), rec)).NotTo(BeEmpty())
		})
	})

	Describe("revocation permanence", func() {
		It("rejects a logged out token on every later use", func() {
			token := h.registerAndLogin("jdoe1", "j@x.com")
			Expect(h.do(request{method: http.MethodGet, path: "/api/auth/logout", token: token}).Code).
				To(Equal(http.StatusOK))

			for range 5 {
				rec := h.do(request{method: http.MethodGet, path: "/api/auth/restricted", token: token})
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			}
		})
	})

	Describe("reset token role enforcement", func() {
		It("refuses a valid LOGIN token on reset-password", func() {
			token := h.registerAndLogin("jdoe1", "j@x.com")
			rec := h.do(request{
				path:  "/api/auth/reset-password",
				body:  map[string]any{"password": "N3w-Passw0rd", "confirmedPassword": "N3w-Passw0rd"},
				token: token,
			})
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
