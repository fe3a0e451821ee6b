package credtoken_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/security"
	"github.com/sloked-project/sloked/security/credtoken"
)

func TestCredtoken(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "credtoken suite")
}

func newTestMaster() *security.CredentialMaster {
	crypto := security.NewCrypto()
	key := security.NewKey(make([]byte, 32), "aes-cbc")
	master, err := security.NewCredentialMaster(crypto, key)
	Expect(err).NotTo(HaveOccurred())
	return master
}

var _ = Describe("Issuer", func() {
	var master *security.CredentialMaster
	var issuer *credtoken.Issuer

	BeforeEach(func() {
		master = newTestMaster()
		_, err := master.NewWithPassword("alice", "hunter2")
		Expect(err).NotTo(HaveOccurred())
		issuer = credtoken.NewIssuer(master, "credtoken-test", time.Minute)
	})

	It("round-trips a token back to its account", func() {
		token, err := issuer.Issue("alice")
		Expect(err).NotTo(HaveOccurred())
		account, err := issuer.Verify(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(account.Identifier()).To(Equal("alice"))
	})

	It("rejects a token for an unknown account", func() {
		_, err := issuer.Issue("bob")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a tampered token", func() {
		token, err := issuer.Issue("alice")
		Expect(err).NotTo(HaveOccurred())
		mangled := token[:len(token)-2] + "xx"
		_, err = issuer.Verify(mangled)
		Expect(err).To(HaveOccurred())
	})

	It("rejects tokens minted before a password rotation", func() {
		token, err := issuer.Issue("alice")
		Expect(err).NotTo(HaveOccurred())
		account, err := master.ByName("alice")
		Expect(err).NotTo(HaveOccurred())
		account.SetPassword("swordfish")
		_, err = issuer.Verify(token)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an expired token", func() {
		shortLived := credtoken.NewIssuer(master, "credtoken-test", -time.Second)
		token, err := shortLived.Issue("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = issuer.Verify(token)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a token issued under a different salt", func() {
		other := credtoken.NewIssuer(master, "another-salt", time.Minute)
		token, err := other.Issue("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = issuer.Verify(token)
		Expect(err).To(HaveOccurred())
	})
})
