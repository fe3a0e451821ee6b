package net_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	kgrnet "github.com/sloked-project/sloked/kgr/net"
	"github.com/sloked-project/sloked/sched"
)

var _ = Describe("Conn", func() {
	It("should deliver Invoke as a bound method call and return its result", func() {
		clientSocket, serverSocket := newMemSocketPair()
		executor := sched.NewPoolExecutor(4)
		client := kgrnet.NewConn(clientSocket, executor)
		server := kgrnet.NewConn(serverSocket, executor)
		defer client.Close()
		defer server.Close()

		server.BindMethod("echo", func(params kgrnet.Value) (kgrnet.Value, error) {
			return params, nil
		})
		go client.Run()
		go server.Run()

		result := client.Invoke("echo", "hello")
		result.Wait()
		Expect(result.State()).To(Equal(sched.Ready))
		Expect(result.GetResult()).To(Equal("hello"))
	})

	It("should surface handler errors as a failed result", func() {
		clientSocket, serverSocket := newMemSocketPair()
		executor := sched.NewPoolExecutor(4)
		client := kgrnet.NewConn(clientSocket, executor)
		server := kgrnet.NewConn(serverSocket, executor)
		defer client.Close()
		defer server.Close()

		server.BindMethod("fail", func(kgrnet.Value) (kgrnet.Value, error) {
			return nil, errBoom
		})
		go client.Run()
		go server.Run()

		result := client.Invoke("fail", nil)
		result.Wait()
		Expect(result.State()).To(Equal(sched.Failed))
	})

	It("should reject pending invocations once the connection closes", func() {
		clientSocket, serverSocket := newMemSocketPair()
		executor := sched.NewPoolExecutor(4)
		client := kgrnet.NewConn(clientSocket, executor)
		server := kgrnet.NewConn(serverSocket, executor)
		defer server.Close()
		go server.Run()

		client.Close()
		result := client.Invoke("whatever", nil)
		result.Wait()
		Expect(result.State()).To(Equal(sched.Failed))
	})
})

var errBoom = boomErr{}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }
