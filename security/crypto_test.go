package security_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/security"
)

var _ = Describe("Crypto", func() {
	var crypto security.Crypto

	BeforeEach(func() {
		crypto = security.NewCrypto()
	})

	It("round-trips a cipher's encrypt/decrypt", func() {
		key := security.NewKey(make([]byte, 32), "aes-cbc")
		cipher, err := crypto.NewCipher(key)
		Expect(err).NotTo(HaveOccurred())

		iv := make([]byte, cipher.IVSize())
		plaintext := make([]byte, cipher.BlockSize()*2)
		for i := range plaintext {
			plaintext[i] = byte(i)
		}
		encrypted, err := cipher.Encrypt(plaintext, iv)
		Expect(err).NotTo(HaveOccurred())
		Expect(encrypted).NotTo(Equal(plaintext))

		decrypted, err := cipher.Decrypt(encrypted, iv)
		Expect(err).NotTo(HaveOccurred())
		Expect(decrypted).To(Equal(plaintext))
	})

	It("derives the same key for the same password and salt", func() {
		k1, err := crypto.DeriveKey("hunter2", []byte("salt"), 32)
		Expect(err).NotTo(HaveOccurred())
		k2, err := crypto.DeriveKey("hunter2", []byte("salt"), 32)
		Expect(err).NotTo(HaveOccurred())
		Expect(k1.Bytes()).To(Equal(k2.Bytes()))
	})

	It("derives different keys for different passwords", func() {
		k1, err := crypto.DeriveKey("hunter2", []byte("salt"), 32)
		Expect(err).NotTo(HaveOccurred())
		k2, err := crypto.DeriveKey("correct-horse", []byte("salt"), 32)
		Expect(err).NotTo(HaveOccurred())
		Expect(k1.Bytes()).NotTo(Equal(k2.Bytes()))
	})

	It("yields random bytes of the requested length", func() {
		random := crypto.NewRandom()
		b, err := random.Bytes(16)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(HaveLen(16))
	})
})
