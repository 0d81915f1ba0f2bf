// Package ginkgobinding registers a fixture suite with Ginkgo, one spec per fixture.
package ginkgobinding

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/mrz1836/go-cligolden/internal/fixture"
)

// Describe registers a container named text holding one spec per fixture of s. A failing
// spec reports the rendered fixture report. It returns true so it can be assigned to a
// package-level var, the way Ginkgo containers usually are.
func Describe(text string, s *fixture.Suite, decorators ...interface{}) bool {
	args := append([]interface{}{}, decorators...)
	args = append(args, func() {
		for _, f := range s.Fixtures() {
			ginkgo.It(f.Name, func(ctx ginkgo.SpecContext) {
				outcome := s.RunFixture(ctx, f)
				gomega.Expect(outcome.SetupErr).NotTo(gomega.HaveOccurred(), outcome.Report)
				gomega.Expect(outcome.Passed()).To(gomega.BeTrue(), outcome.Report)
			})
		}
	})
	return ginkgo.Describe(text, args...)
}
