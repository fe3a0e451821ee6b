package net_test

import (
	"io"
	"sync"
)

// memSocket is an in-memory MessageSocket, a connected pair standing in for
// a net.CryptoSocket so Conn/master/slave tests exercise RPC framing
// without real sockets or ciphers -- the message-level analogue of
// kgr.NewPipePair.
type memSocket struct {
	out       chan []byte
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMemSocketPair() (*memSocket, *memSocket) {
	a := make(chan []byte, 64)
	b := make(chan []byte, 64)
	s1 := &memSocket{out: a, in: b, closed: make(chan struct{})}
	s2 := &memSocket{out: b, in: a, closed: make(chan struct{})}
	return s1, s2
}

func (m *memSocket) ReadMessage() ([]byte, error) {
	select {
	case msg, ok := <-m.in:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-m.closed:
		return nil, io.EOF
	}
}

func (m *memSocket) WriteMessage(data []byte) error {
	select {
	case m.out <- data:
		return nil
	case <-m.closed:
		return io.EOF
	}
}

func (m *memSocket) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}
