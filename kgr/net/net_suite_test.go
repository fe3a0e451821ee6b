package net_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestKgrNet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "kgr/net suite")
}
