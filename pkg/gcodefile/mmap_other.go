//go:build !linux && !darwin

package gcodefile

import (
	"errors"
	"os"
)

var errMapUnsupported = errors.New("memory mapping not supported")

func mapFile(*os.File, int64) ([]byte, error) {
	return nil, errMapUnsupported
}

func unmapFile([]byte) error { return nil }
