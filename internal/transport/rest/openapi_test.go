package rest_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Transport Suite")
}

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	It("validates against the OpenAPI 3 specification", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("documents every route the router serves", func() {
		for _, path := range []string{
			"/token",
			"/users/",
			"/users/me",
			"/users/{user_id}",
			"/users/{user_id}/role",
			"/users/{user_id}/status",
			"/users/{user_id}/permissions",
			"/widgets/",
			"/widgets/count",
			"/widgets/{widget_id}",
			"/health",
			"/ready",
			"/metrics",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), path)
		}
	})

	It("declares the bearer security scheme", func() {
		Expect(doc.Components.SecuritySchemes).To(HaveKey("bearerAuth"))
	})
})
