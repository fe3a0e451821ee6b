package security_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/security"
)

var _ = Describe("RestrictionFilter", func() {
	It("blocks nothing by default", func() {
		filter := security.NewRestrictionFilter()
		Expect(filter.Blocks("/some/service")).To(BeFalse())
	})

	It("blocks a name once added, and stops once removed", func() {
		filter := security.NewRestrictionFilter()
		filter.Block("/restricted")
		Expect(filter.Blocks("/restricted")).To(BeTrue())
		Expect(filter.Blocks("/other")).To(BeFalse())

		filter.Unblock("/restricted")
		Expect(filter.Blocks("/restricted")).To(BeFalse())
	})

	It("tolerates blocking the same name twice", func() {
		filter := security.NewRestrictionFilter()
		filter.Block("/restricted")
		filter.Block("/restricted")
		Expect(filter.Blocks("/restricted")).To(BeTrue())
	})
})
