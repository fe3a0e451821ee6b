package sched_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("Result", func() {
	Describe("Supplier", func() {
		It("should resolve to Ready and deliver the value", func() {
			supplier := sched.NewSupplier[int, error]()
			result := supplier.Result()
			Expect(result.State()).To(Equal(sched.Pending))

			supplier.SetResult(42)
			Expect(result.State()).To(Equal(sched.Ready))
			Expect(result.GetResult()).To(Equal(42))
		})

		It("should resolve to Failed and deliver the error", func() {
			supplier := sched.NewSupplier[int, error]()
			result := supplier.Result()

			failure := errors.New("boom")
			supplier.SetError(failure)
			Expect(result.State()).To(Equal(sched.Failed))
			Expect(result.GetError()).To(Equal(failure))
		})

		It("should resolve to Cancelled", func() {
			supplier := sched.NewSupplier[int, error]()
			result := supplier.Result()
			supplier.Cancel()
			Expect(result.State()).To(Equal(sched.Cancelled))
		})
	})

	Describe("WaitFor", func() {
		It("should return Pending once the deadline passes", func() {
			supplier := sched.NewSupplier[int, error]()
			Expect(supplier.Result().WaitFor(10 * time.Millisecond)).To(Equal(sched.Pending))
		})

		It("should observe a result settled before the deadline", func() {
			supplier := sched.NewSupplier[int, error]()
			go func() {
				time.Sleep(5 * time.Millisecond)
				supplier.SetResult(1)
			}()
			Expect(supplier.Result().WaitFor(time.Second)).To(Equal(sched.Ready))
		})

		It("should return immediately for an already-settled result", func() {
			result := sched.Resolve[int, error](3)
			Expect(result.WaitUntil(time.Now())).To(Equal(sched.Ready))
		})
	})

	Describe("Notify", func() {
		It("should fire once the result settles", func() {
			supplier := sched.NewSupplier[string, error]()
			var observed string
			supplier.Result().Notify(func(r sched.Result[string, error]) {
				observed = r.GetResult()
			}, sched.Global)

			supplier.SetResult("hello")
			Expect(observed).To(Equal("hello"))
		})

		It("should fire immediately for an already-settled result", func() {
			result := sched.Resolve[int, error](7)
			var observed int
			result.Notify(func(r sched.Result[int, error]) {
				observed = r.GetResult()
			}, sched.Global)
			Expect(observed).To(Equal(7))
		})

		It("should not fire after being detached", func() {
			supplier := sched.NewSupplier[int, error]()
			fired := false
			detach := supplier.Result().Notify(func(sched.Result[int, error]) {
				fired = true
			}, sched.Global)
			detach()
			supplier.SetResult(1)
			Expect(fired).To(BeFalse())
		})
	})

	Describe("Unwrap", func() {
		It("should return the value for Ready", func() {
			v, err := sched.Unwrap(sched.Resolve[int, error](9))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(9))
		})

		It("should return the error for Failed", func() {
			failure := errors.New("boom")
			_, err := sched.Unwrap(sched.Reject[int, error](failure))
			Expect(err).To(Equal(failure))
		})

		It("should return CancelledError for Cancelled", func() {
			_, err := sched.Unwrap(sched.CancelResult[int, error]())
			Expect(err).To(Equal(sched.CancelledError))
		})
	})
})
