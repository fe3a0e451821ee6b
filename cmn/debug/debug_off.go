//go:build !debug

package debug

func assert(cond bool, args ...interface{}) {}

func assertNoErr(err error) {}

func assertFunc(f func() bool, args ...interface{}) {}
