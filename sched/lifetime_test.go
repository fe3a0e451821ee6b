package sched_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("Lifetime", func() {
	It("should hand out tokens while active", func() {
		lt := sched.NewLifetime()
		token, ok := lt.Acquire()
		Expect(ok).To(BeTrue())
		Expect(lt.IsActive()).To(BeTrue())
		token.Release()
	})

	It("should refuse tokens and report inactive after Close", func() {
		lt := sched.NewLifetime()
		lt.Close()
		Expect(lt.IsActive()).To(BeFalse())
		_, ok := lt.Acquire()
		Expect(ok).To(BeFalse())
	})

	It("should block Close until outstanding tokens are released", func() {
		lt := sched.NewLifetime()
		token, _ := lt.Acquire()

		closed := make(chan struct{})
		go func() {
			lt.Close()
			close(closed)
		}()

		select {
		case <-closed:
			Fail("Close returned before the token was released")
		case <-time.After(20 * time.Millisecond):
		}

		token.Release()
		Eventually(closed, time.Second).Should(BeClosed())
	})
})
