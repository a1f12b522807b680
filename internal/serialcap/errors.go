package serialcap

import "errors"

var errShortRead = errors.New("serialcap: short read from serial port")
