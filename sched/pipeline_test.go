package sched_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("Pipeline", func() {
	It("should chain Map stages left to right", func() {
		p := sched.FromResult(sched.Resolve[int, error](2))
		p2 := sched.Then(p, sched.Map[int, error](func(v int) int { return v * 3 }))
		p3 := sched.Then(p2, sched.Map[int, error](func(v int) string {
			if v == 6 {
				return "six"
			}
			return "other"
		}))
		result := p3.Run(sched.Global)
		Expect(result.State()).To(Equal(sched.Ready))
		Expect(result.GetResult()).To(Equal("six"))
	})

	It("should short-circuit Map on a Failed source", func() {
		failure := errors.New("boom")
		p := sched.FromResult(sched.Reject[int, error](failure))
		p2 := sched.Then(p, sched.Map[int, error](func(v int) int { return v * 3 }))
		result := p2.Run(sched.Global)
		Expect(result.State()).To(Equal(sched.Failed))
		Expect(result.GetError()).To(Equal(failure))
	})

	It("should transform the error with MapError", func() {
		p := sched.FromResult(sched.Reject[int, error](errors.New("boom")))
		p2 := sched.Then(p, sched.MapError[int](func(err error) string {
			return "wrapped: " + err.Error()
		}))
		result := p2.Run(sched.Global)
		Expect(result.State()).To(Equal(sched.Failed))
		Expect(result.GetError()).To(Equal("wrapped: boom"))
	})

	It("should substitute a value for Cancelled via MapCancelled", func() {
		p := sched.FromResult(sched.CancelResult[int, error]())
		p2 := sched.Then(p, sched.MapCancelled[int, error](
			func() (int, error) { return -1, nil },
			func(err error) error { return err },
		))
		result := p2.Run(sched.Global)
		Expect(result.State()).To(Equal(sched.Ready))
		Expect(result.GetResult()).To(Equal(-1))
	})

	It("should recover a Failed result via Catch", func() {
		p := sched.FromResult(sched.Reject[int, error](errors.New("boom")))
		p2 := sched.Then(p, sched.Catch[int](func(error) (int, error) { return 0, nil }))
		result := p2.Run(sched.Global)
		Expect(result.State()).To(Equal(sched.Ready))
		Expect(result.GetResult()).To(Equal(0))
	})

	It("should observe Ready values with Scan without altering the pipeline", func() {
		var seen int
		p := sched.FromResult(sched.Resolve[int, error](5))
		p2 := sched.Then(p, sched.Scan[int, error](func(v int) { seen = v }))
		result := p2.Run(sched.Global)
		Expect(result.GetResult()).To(Equal(5))
		Expect(seen).To(Equal(5))
	})

	It("should pass a result through unchanged with Pass", func() {
		p := sched.FromResult(sched.Resolve[int, error](11))
		p2 := sched.Then(p, sched.Pass[int, error]())
		Expect(p2.Run(sched.Global).GetResult()).To(Equal(11))
	})

	It("should flatten a nested stage via Async", func() {
		p := sched.FromResult(sched.Resolve[int, error](4))
		doubled := sched.Async(sched.Map[int, error](func(v int) int { return v * 2 }))
		p2 := sched.Then(p, doubled)
		Expect(p2.Run(sched.Global).GetResult()).To(Equal(8))
	})
})
