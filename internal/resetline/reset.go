// Package resetline pulses a target's reset line over a GPIO chardev
// before a capture starts, so a trace session begins at a known boot
// state rather than mid-execution.
package resetline

import (
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Pulse drives line low for hold, then releases it, on chip (e.g.
// "gpiochip0"). The line is expected to be wired active-low into the
// target's NRST pin, matching common debug-probe reset wiring.
func Pulse(chip string, line int, hold time.Duration) error {
	c, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(1))
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SetValue(0); err != nil {
		return err
	}
	time.Sleep(hold)
	return c.SetValue(1)
}
