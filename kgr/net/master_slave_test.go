package net_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/kgr"
	kgrnet "github.com/sloked-project/sloked/kgr/net"
	"github.com/sloked-project/sloked/sched"
)

// echoService attaches pipe and bounces every message straight back.
type echoService struct{}

func (echoService) Attach(pipe *kgr.Pipe) sched.Result[struct{}, error] {
	go func() {
		for {
			v, err := pipe.Read()
			if err != nil {
				return
			}
			if pipe.Write(v) != nil {
				return
			}
		}
	}()
	return sched.Resolve[struct{}, error](struct{}{})
}

var _ = Describe("Master/slave", func() {
	It("should let a master peer connect directly to a service registered on its own named server", func() {
		executor := sched.NewPoolExecutor(4)
		masterNS := kgr.NewNamedServer(kgr.NewLocalServer())
		register := masterNS.Register(core.NewPath("/echo"), echoService{})
		register.Wait()
		Expect(register.State()).To(Equal(sched.Ready))

		clientSocket, serverSocket := newMemSocketPair()
		masterConn := kgrnet.NewConn(serverSocket, executor)
		remoteConn := kgrnet.NewConn(clientSocket, executor)
		kgrnet.AttachMaster(masterConn, masterNS, nil, nil, nil)
		go remoteConn.Run()
		defer remoteConn.Close()

		connect := remoteConn.Invoke("connect", "/echo")
		connect.Wait()
		Expect(connect.State()).To(Equal(sched.Ready))

		activate := remoteConn.Invoke("activate", connect.GetResult())
		activate.Wait()
		Expect(activate.State()).To(Equal(sched.Ready))

		sendResult := remoteConn.Invoke("send", kgrnet.Dict(map[string]kgrnet.Value{
			"pipe": connect.GetResult(),
			"data": "hello",
		}))
		sendResult.Wait()
		Expect(sendResult.State()).To(Equal(sched.Ready))
		Expect(sendResult.GetResult()).To(Equal(true))
	})

	It("should let a slave bind a local service into the master's namespace", func() {
		executor := sched.NewPoolExecutor(4)
		masterNS := kgr.NewNamedServer(kgr.NewLocalServer())
		slaveNS := kgr.NewNamedServer(kgr.NewLocalServer())
		register := slaveNS.Register(core.NewPath("/remote-echo"), echoService{})
		register.Wait()
		Expect(register.State()).To(Equal(sched.Ready))

		masterSocket, slaveSocket := newMemSocketPair()
		masterConn := kgrnet.NewConn(masterSocket, executor)
		slaveConn := kgrnet.NewConn(slaveSocket, executor)
		kgrnet.AttachMaster(masterConn, masterNS, nil, nil, nil)
		slave := kgrnet.NewSlaveServer(slaveConn, slaveNS)
		go slaveConn.Run()
		defer slaveConn.Close()

		bind := slave.Bind("/remote-echo")
		bind.Wait()
		Expect(bind.State()).To(Equal(sched.Ready))
		Expect(bind.GetResult()).To(BeTrue())

		registered := masterNS.Registered(core.NewPath("/remote-echo"))
		registered.Wait()
		Expect(registered.GetResult()).To(BeTrue())
	})
})
