package security_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/sloked-project/sloked/security"
)

var _ = Describe("Store", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "sloked-security-store")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("round-trips an account's password and restrictions", func() {
		store, err := security.OpenStore(filepath.Join(dir, "accounts.db"))
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		master := newTestMaster()
		account, err := master.New("alice")
		Expect(err).NotTo(HaveOccurred())
		blocked := security.NewRestrictionFilter()
		blocked.Block("/secret")
		account.SetAccessRestrictions(blocked)

		Expect(store.Save(account)).To(Succeed())

		restored := newTestMaster()
		loaded, err := store.Load(restored, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Identifier()).To(Equal("alice"))
		Expect(loaded.Password()).To(Equal(account.Password()))
		Expect(loaded.IsAccessAllowed("/secret")).To(BeFalse())
		Expect(loaded.IsAccessAllowed("/public")).To(BeTrue())
	})

	It("fails to load an account that was never saved", func() {
		store, err := security.OpenStore(filepath.Join(dir, "accounts.db"))
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		_, err = store.Load(newTestMaster(), "nobody")
		Expect(err).To(HaveOccurred())
	})
})
