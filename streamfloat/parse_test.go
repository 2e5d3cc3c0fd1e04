package streamfloat

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesitopo/multicast"
	"github.com/sarchlab/mesitopo/topoerr"
)

var _ = Describe("ParseFlagList", func() {
	It("should turn on the named features", func() {
		f, err := ParseFlagList(DefaultFlags(),
			[]string{"float", "indirect", "Multicast", " range-sync "})

		Expect(err).NotTo(HaveOccurred())
		Expect(f.Float).To(BeTrue())
		Expect(f.Indirect).To(BeTrue())
		Expect(f.Multicast).To(BeTrue())
		Expect(f.RangeSync).To(BeTrue())
		Expect(f.Pseudo).To(BeFalse())
		Expect(f.LLC.IssueWidth).To(Equal(1))
	})

	It("should not depend on the order of names", func() {
		names := []string{"float", "indirect", "pseudo", "cancel", "midway"}
		reversed := []string{"midway", "cancel", "pseudo", "indirect", "float"}

		a, errA := ParseFlagList(DefaultFlags(), names)
		b, errB := ParseFlagList(DefaultFlags(), reversed)

		Expect(errA).NotTo(HaveOccurred())
		Expect(errB).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
		Expect(Validate(a, multicast.MeshXY)).To(Succeed())
		Expect(Validate(b, multicast.MeshXY)).To(Succeed())
	})

	It("should accept repeated and empty names", func() {
		f, err := ParseFlagList(DefaultFlags(), []string{"float", "", "float"})

		Expect(err).NotTo(HaveOccurred())
		Expect(f.Float).To(BeTrue())
	})

	It("should reject unknown names", func() {
		_, err := ParseFlagList(DefaultFlags(), []string{"float", "warp"})

		Expect(topoerr.IsConfigError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(`"warp"`))
	})

	It("should accept every advertised name", func() {
		_, err := ParseFlagList(DefaultFlags(), FeatureNames())

		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("CoreEngine", func() {
	It("should halve the SIMD delay once it reaches two cycles", func() {
		f := DefaultFlags()
		f.LLCAccessCoreSIMDDelay = 6

		Expect(CoreEngine(&f).ComputeSIMDDelay).To(Equal(3))
	})

	It("should keep a short SIMD delay", func() {
		f := DefaultFlags()
		f.LLCAccessCoreSIMDDelay = 1

		Expect(CoreEngine(&f).ComputeSIMDDelay).To(Equal(1))
	})

	It("should copy the float settings", func() {
		f := DefaultFlags()
		f.Float = true
		f.Indirect = true
		f.ComputeWidth = 4

		p := CoreEngine(&f)

		Expect(p.EnableFloat).To(BeTrue())
		Expect(p.EnableFloatIndirect).To(BeTrue())
		Expect(p.ComputeWidth).To(Equal(4))
		Expect(p.ComputeMaxInflyComputation).To(Equal(32))
	})
})
