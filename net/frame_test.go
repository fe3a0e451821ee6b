package net_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/net"
)

var _ = Describe("Frame", func() {
	cipher := identityCipher{blockSize: 8, ivSize: 4}
	random := fixedRandom{b: 0x42}

	It("should round-trip a non-empty data frame", func() {
		frame := net.Frame{Type: net.FrameData, Payload: []byte("hello, world")}
		encoded, err := frame.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())

		decoded, consumed, err := net.DecodeFrame(encoded, cipher)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumed).To(Equal(len(encoded)))
		Expect(decoded.Type).To(Equal(net.FrameData))
		Expect(decoded.Payload).To(Equal([]byte("hello, world")))
	})

	It("should encode an empty-payload frame as exactly 5 bytes", func() {
		frame := net.Frame{Type: net.FrameKeyChange}
		encoded, err := frame.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(HaveLen(5))

		decoded, consumed, err := net.DecodeFrame(encoded, cipher)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumed).To(Equal(5))
		Expect(decoded.Type).To(Equal(net.FrameKeyChange))
		Expect(decoded.Payload).To(BeEmpty())
	})

	It("should report 0 consumed when the buffer is short of a full frame", func() {
		frame := net.Frame{Type: net.FrameData, Payload: []byte("0123456789")}
		encoded, err := frame.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())

		_, consumed, err := net.DecodeFrame(encoded[:len(encoded)-1], cipher)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumed).To(Equal(0))
	})

	It("should reject an unknown frame type", func() {
		buf := []byte{0xff, 0, 0, 0, 0}
		_, _, err := net.DecodeFrame(buf, cipher)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a frame whose last ciphertext byte was corrupted", func() {
		frame := net.Frame{Type: net.FrameData, Payload: []byte("tamper me")}
		encoded, err := frame.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())
		encoded[len(encoded)-1] ^= 0xff // corrupt the last ciphertext byte

		_, _, err = net.DecodeFrame(encoded, cipher)
		Expect(err).To(HaveOccurred())
	})

	It("should pad non-block-aligned payloads to the cipher's block size", func() {
		frame := net.Frame{Type: net.FrameData, Payload: []byte("odd")} // 3 bytes, block size 8
		encoded, err := frame.Encode(cipher, random)
		Expect(err).NotTo(HaveOccurred())
		// header(9) + iv(4) + padded-ciphertext(8)
		Expect(encoded).To(HaveLen(9 + 4 + 8))
	})
})
