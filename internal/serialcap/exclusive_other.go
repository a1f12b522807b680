//go:build !linux

package serialcap

import "github.com/pkg/term"

// applyExclusive has no portable equivalent outside Linux's TIOCEXCL;
// other platforms open the port without an exclusivity guarantee.
func applyExclusive(tty *term.Term) error {
	return nil
}
