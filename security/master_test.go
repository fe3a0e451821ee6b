package security_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/security"
)

func newTestMaster() *security.CredentialMaster {
	crypto := security.NewCrypto()
	key := security.NewKey(make([]byte, 32), "aes-cbc")
	master, err := security.NewCredentialMaster(crypto, key)
	Expect(err).NotTo(HaveOccurred())
	return master
}

var _ = Describe("CredentialMaster", func() {
	It("creates an account with a randomized, non-empty password", func() {
		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(account.Identifier()).To(Equal("alice"))
		Expect(account.Password()).NotTo(BeEmpty())
		Expect(master.Has("alice")).To(BeTrue())
	})

	It("rejects a duplicate account name", func() {
		master := newTestMaster()
		_, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = master.New("alice")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty account name", func() {
		master := newTestMaster()
		_, err := master.New("")
		Expect(err).To(HaveOccurred())
	})

	It("looks accounts up by name", func() {
		master := newTestMaster()
		created, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		found, err := master.ByName("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeIdenticalTo(created))
	})

	It("fails to look up an unknown account", func() {
		master := newTestMaster()
		_, err := master.ByName("bob")
		Expect(err).To(HaveOccurred())
	})

	It("enables and disables a default account", func() {
		master := newTestMaster()
		Expect(master.DefaultAccount()).To(BeNil())

		account, err := master.EnableDefaultAccount(true)
		Expect(err).NotTo(HaveOccurred())
		Expect(account).NotTo(BeNil())
		Expect(master.DefaultAccount()).To(BeIdenticalTo(account))

		_, err = master.EnableDefaultAccount(false)
		Expect(err).NotTo(HaveOccurred())
		Expect(master.DefaultAccount()).To(BeNil())
	})
})

var _ = Describe("Account", func() {
	It("derives the same session key twice in a row", func() {
		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())

		k1, err := account.DeriveKey(32, "salt")
		Expect(err).NotTo(HaveOccurred())
		k2, err := account.DeriveKey(32, "salt")
		Expect(err).NotTo(HaveOccurred())
		Expect(k1.Bytes()).To(Equal(k2.Bytes()))
	})

	It("derives a different key once the password changes", func() {
		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())

		before, err := account.DeriveKey(32, "salt")
		Expect(err).NotTo(HaveOccurred())
		Expect(account.RandomizePassword()).To(Succeed())
		after, err := account.DeriveKey(32, "salt")
		Expect(err).NotTo(HaveOccurred())
		Expect(before.Bytes()).NotTo(Equal(after.Bytes()))
	})

	It("notifies watchers when the password changes", func() {
		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())

		notified := false
		detach := account.Watch(func() { notified = true })
		Expect(account.RandomizePassword()).To(Succeed())
		Expect(notified).To(BeTrue())

		notified = false
		detach()
		Expect(account.RandomizePassword()).To(Succeed())
		Expect(notified).To(BeFalse())
	})

	It("gates access/modification through its restriction filters", func() {
		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(account.IsAccessAllowed("/any")).To(BeTrue())

		restricted := security.NewRestrictionFilter()
		restricted.Block("/secret")
		account.SetAccessRestrictions(restricted)
		Expect(account.IsAccessAllowed("/secret")).To(BeFalse())
		Expect(account.IsAccessAllowed("/public")).To(BeTrue())
	})
})
