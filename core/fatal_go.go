//go:build !tinygo

package core

func haltForever(reason string) {
	panic(&FatalError{Reason: reason})
}
