package sched_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("PoolExecutor", func() {
	It("should run an enqueued callback to completion", func() {
		executor := sched.NewPoolExecutor(0)
		var ran int32
		task := executor.Enqueue(func() { atomic.StoreInt32(&ran, 1) })
		task.Wait()
		Expect(task.Status()).To(Equal(sched.TaskComplete))
		Expect(atomic.LoadInt32(&ran)).To(Equal(int32(1)))
	})

	It("should bound concurrency with a weighted semaphore", func() {
		executor := sched.NewPoolExecutor(1)
		var running int32
		var maxObserved int32
		release := make(chan struct{})

		task1 := executor.Enqueue(func() {
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxObserved) {
				atomic.StoreInt32(&maxObserved, n)
			}
			<-release
			atomic.AddInt32(&running, -1)
		})
		time.Sleep(10 * time.Millisecond)
		task2 := executor.Enqueue(func() {
			atomic.AddInt32(&running, 1)
			atomic.AddInt32(&running, -1)
		})

		Expect(task2.Status()).NotTo(Equal(sched.TaskComplete))
		close(release)
		task1.Wait()
		task2.Wait()
		Expect(atomic.LoadInt32(&maxObserved)).To(Equal(int32(1)))
	})
})

var _ = Describe("ScopedExecutor", func() {
	It("should cancel tasks still pending behind a full pool on Close", func() {
		base := sched.NewPoolExecutor(1)
		scoped := sched.NewScopedExecutor(base)
		block := make(chan struct{})
		running := scoped.Enqueue(func() { <-block })
		time.Sleep(10 * time.Millisecond)

		pending := scoped.Enqueue(func() {})
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(block)
		}()
		scoped.Close()
		Expect(pending.Status()).To(Equal(sched.TaskCanceled))

		running.Wait()
	})
})
