//go:build debug

package debug

import "fmt"

func assert(cond bool, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintln(append([]interface{}{"assertion failed:"}, args...)...))
	}
}

func assertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}

func assertFunc(f func() bool, args ...interface{}) {
	assert(f(), args...)
}
