package sched_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("WallScheduler", func() {
	It("should fire a Sleep callback after the delay", func() {
		scheduler := sched.NewWallScheduler()
		var fired int32
		task := scheduler.Sleep(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
		task.Wait()
		Expect(task.Status()).To(Equal(sched.TaskComplete))
		Expect(atomic.LoadInt32(&fired)).To(Equal(int32(1)))
	})

	It("should not fire a cancelled Sleep callback", func() {
		scheduler := sched.NewWallScheduler()
		var fired int32
		task := scheduler.Sleep(50*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
		task.Cancel()
		time.Sleep(80 * time.Millisecond)
		Expect(atomic.LoadInt32(&fired)).To(Equal(int32(0)))
		Expect(task.Status()).To(Equal(sched.TaskCanceled))
	})

	It("should fire Interval repeatedly until cancelled", func() {
		scheduler := sched.NewWallScheduler()
		var count int32
		task := scheduler.Interval(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
		time.Sleep(55 * time.Millisecond)
		task.Cancel()
		seen := atomic.LoadInt32(&count)
		Expect(seen).To(BeNumerically(">=", 2))
		time.Sleep(30 * time.Millisecond)
		Expect(atomic.LoadInt32(&count)).To(Equal(seen))
	})
})

var _ = Describe("ScopedScheduler", func() {
	It("should cancel outstanding timers on Close", func() {
		base := sched.NewWallScheduler()
		scoped := sched.NewScopedScheduler(base)
		var fired int32
		task := scoped.Sleep(200*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })

		scoped.Close()
		Expect(task.Status()).To(Equal(sched.TaskCanceled))
		Expect(atomic.LoadInt32(&fired)).To(Equal(int32(0)))
	})

	It("should refuse new timers once closed", func() {
		base := sched.NewWallScheduler()
		scoped := sched.NewScopedScheduler(base)
		scoped.Close()
		task := scoped.Sleep(time.Millisecond, func() {})
		Expect(task).To(BeNil())
	})
})
