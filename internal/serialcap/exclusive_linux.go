//go:build linux

package serialcap

import (
	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

// applyExclusive claims the TTY via TIOCEXCL so a second capture tool
// pointed at the same device fails fast instead of interleaving reads
// with this one.
func applyExclusive(tty *term.Term) error {
	return unix.IoctlSetInt(int(tty.Fd()), unix.TIOCEXCL, 0)
}
