package security_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	kgrnet "github.com/sloked-project/sloked/kgr/net"
	"github.com/sloked-project/sloked/security"
)

var _ = Describe("AuthenticatorFactory", func() {
	It("logs a slave in with the correct password", func() {
		master := newTestMaster()
		_, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())

		factory := security.NewAuthenticatorFactory(security.NewCrypto(), master, "auth-salt")
		var masterAuth kgrnet.MasterAuthenticator = factory.NewMaster()
		slaveAuth := factory.NewSlave()

		id, nonce := masterAuth.InitiateLogin()
		Expect(id).To(BeEmpty())
		Expect(nonce).NotTo(BeEmpty())

		token, err := slaveAuth.InitiateLogin("alice", nonce)
		Expect(err).NotTo(HaveOccurred())
		Expect(token).NotTo(BeEmpty())

		Expect(masterAuth.ContinueLogin("alice", token)).To(BeTrue())
		masterAuth.FinalizeLogin("alice")

		concrete := masterAuth.(*security.MasterAuthenticator)
		Expect(concrete.IsLoggedIn()).To(BeTrue())
		Expect(concrete.Account()).To(Equal("alice"))
	})

	It("refuses a slave logging in as the wrong account", func() {
		master := newTestMaster()
		_, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = master.New("mallory")
		Expect(err).NotTo(HaveOccurred())

		factory := security.NewAuthenticatorFactory(security.NewCrypto(), master, "auth-salt")
		masterAuth := factory.NewMaster()
		slaveAuth := factory.NewSlave()

		_, nonce := masterAuth.InitiateLogin()
		token, err := slaveAuth.InitiateLogin("mallory", nonce)
		Expect(err).NotTo(HaveOccurred())

		Expect(masterAuth.ContinueLogin("alice", token)).To(BeFalse())
	})

	It("refuses a stale token once a new login has been initiated", func() {
		master := newTestMaster()
		_, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())

		factory := security.NewAuthenticatorFactory(security.NewCrypto(), master, "auth-salt")
		masterAuth := factory.NewMaster()
		slaveAuth := factory.NewSlave()

		_, nonce := masterAuth.InitiateLogin()
		token, err := slaveAuth.InitiateLogin("alice", nonce)
		Expect(err).NotTo(HaveOccurred())

		masterAuth.InitiateLogin()
		Expect(masterAuth.ContinueLogin("alice", token)).To(BeFalse())
	})
})
