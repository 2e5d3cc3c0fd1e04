package naming

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Name", func() {
	It("should build indexed names", func() {
		Expect(BuildWithIndex("Ruby", "L2Cache", 3)).To(Equal("Ruby.L2Cache[3]"))
		Expect(BuildWithIndex("", "Dir", 0)).To(Equal("Dir[0]"))
		Expect(Build("Ruby.L1Cache[1]", "RequestToL2")).
			To(Equal("Ruby.L1Cache[1].RequestToL2"))
	})

	It("should parse and rebuild a name", func() {
		n, err := Parse("Ruby.L1Cache[12].ResponseFromL2")

		Expect(err).NotTo(HaveOccurred())
		Expect(n.Tokens).To(HaveLen(3))
		Expect(n.Tokens[1].Elem).To(Equal("L1Cache"))
		Expect(n.Tokens[1].Index).To(Equal([]int{12}))
		Expect(n.String()).To(Equal("Ruby.L1Cache[12].ResponseFromL2"))
	})

	It("should return the index of the last token", func() {
		Expect(IndexOf("Ruby.Directory[5]")).To(Equal(5))
		Expect(IndexOf("Ruby.Directory")).To(Equal(-1))
	})

	DescribeTable("should reject invalid names",
		func(name string) {
			Expect(Validate(name)).To(HaveOccurred())
		},
		Entry("lower case", "ruby.L1Cache[0]"),
		Entry("empty element", "Ruby..L1Cache"),
		Entry("trailing dot", "Ruby."),
		Entry("underscore", "Ruby.L1_Cache"),
		Entry("dash", "Ruby.L1-Cache"),
		Entry("unmatched bracket", "Ruby.L1Cache[0"),
		Entry("non integer index", "Ruby.L1Cache[a]"),
	)

	It("should accept valid names", func() {
		Expect(Validate("Ruby.L0Cache[0].MandatoryQueue")).To(Succeed())
	})

	It("should panic on invalid names in MustBeValid", func() {
		Expect(func() { MustBeValid("bad") }).To(Panic())
	})
})
