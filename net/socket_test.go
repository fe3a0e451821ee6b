package net_test

import (
	"errors"
	stdnet "net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/net"
)

var _ = Describe("CryptoSocket", func() {
	It("should deliver a Write on one end as a Read on the other over net.Pipe", func() {
		clientConn, serverConn := stdnet.Pipe()
		cipher := identityCipher{blockSize: 8, ivSize: 4}
		random := fixedRandom{b: 7}

		client := net.NewCryptoSocket(clientConn, cipher, random)
		server := net.NewCryptoSocket(serverConn, cipher, random)
		defer client.Close()
		defer server.Close()

		done := make(chan error, 1)
		go func() { _, err := client.Write([]byte("hello")); done <- err }()

		buf := make([]byte, 5)
		n, err := server.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
		Expect(string(buf)).To(Equal("hello"))
		Expect(<-done).NotTo(HaveOccurred())
	})

	It("should fire key-change listeners on the receiving end", func() {
		clientConn, serverConn := stdnet.Pipe()
		cipher := identityCipher{blockSize: 8, ivSize: 4}
		random := fixedRandom{b: 7}

		client := net.NewCryptoSocket(clientConn, cipher, random)
		server := net.NewCryptoSocket(serverConn, cipher, random)
		defer client.Close()
		defer server.Close()

		fired := make(chan struct{}, 1)
		server.NotifyOnKeyChange(func(*net.CryptoSocket) { fired <- struct{}{} })

		go client.KeyChanged()
		// Read will decode the KeyChange control frame without surfacing any
		// bytes to the caller, so drive it on a goroutine and just wait on
		// the listener firing.
		go func() {
			buf := make([]byte, 1)
			server.Read(buf)
		}()

		Eventually(fired, "1s").Should(Receive())
	})

	It("should surface InvalidFrame and close on a corrupted frame", func() {
		clientConn, serverConn := stdnet.Pipe()
		cipher := identityCipher{blockSize: 8, ivSize: 4}
		random := fixedRandom{b: 7}

		server := net.NewCryptoSocket(serverConn, cipher, random)
		defer clientConn.Close()

		encoded, err := net.Frame{Type: net.FrameData, Payload: []byte("corrupt me")}.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())
		encoded[5] ^= 0xff // flip a CRC32 byte

		readErrs := make(chan error, 1)
		go func() {
			_, err := server.ReadMessage()
			readErrs <- err
		}()
		go clientConn.Write(encoded)

		var readErr error
		Eventually(readErrs, "1s").Should(Receive(&readErr))
		Expect(errors.Is(readErr, cmn.ErrInvalidFrame)).To(BeTrue())

		// The socket is poisoned: later readers fail immediately and Wait
		// reports no data on a closed socket.
		_, err = server.Read(make([]byte, 1))
		Expect(errors.Is(err, cmn.ErrInvalidFrame)).To(BeTrue())
		Expect(server.Wait(10 * time.Millisecond)).To(BeFalse())
	})

	It("should report false from Wait on a closed socket", func() {
		clientConn, serverConn := stdnet.Pipe()
		cipher := identityCipher{blockSize: 8, ivSize: 4}
		random := fixedRandom{b: 7}

		client := net.NewCryptoSocket(clientConn, cipher, random)
		server := net.NewCryptoSocket(serverConn, cipher, random)
		defer client.Close()

		server.Close()
		Expect(server.Wait(50 * time.Millisecond)).To(BeFalse())
	})

	It("should report true from Wait once a frame is buffered", func() {
		clientConn, serverConn := stdnet.Pipe()
		cipher := identityCipher{blockSize: 8, ivSize: 4}
		random := fixedRandom{b: 7}

		client := net.NewCryptoSocket(clientConn, cipher, random)
		server := net.NewCryptoSocket(serverConn, cipher, random)
		defer client.Close()
		defer server.Close()

		go client.Write([]byte("ping"))
		Expect(server.Wait(time.Second)).To(BeTrue())
	})
})
