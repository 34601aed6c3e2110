//go:build !linux

package logger

import "io"

func IsTerminal(io.Writer) bool {
	return false
}
