package rest

import (
	"net/http"
	"net/http/httptest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Health endpoints", func() {
	Describe("liveness", func() {
		It("reports healthy even when the database is unreachable", func() {
			db, err := sqlx.Open("pgx", "postgres://127.0.0.1:1/unreachable")
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()
			Expect(db.Ping()).NotTo(Succeed())

			rec := httptest.NewRecorder()
			healthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "healthy"}`))
		})
	})

	Describe("readiness", func() {
		It("reports ready without a database handle", func() {
			rec := httptest.NewRecorder()
			readyHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "ready"}`))
		})

		It("reports degraded when the database is unreachable", func() {
			db, err := sqlx.Open("pgx", "postgres://127.0.0.1:1/unreachable")
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			rec := httptest.NewRecorder()
			readyHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "degraded"}`))
		})
	})
})
