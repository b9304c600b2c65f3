// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

import (
	"fmt"
)

// AccessPort is the single round-trip register interface of the DAP.
//
// The standard path (ReadReg/WriteReg) may retry transport wait
// responses and logs failures. The fast path (ReadRegFast/WriteRegFast)
// performs exactly one round-trip with no retry and no logging; it
// exists for the one timing-critical loop that races the target's
// watchdog, everything else uses the standard path.
type AccessPort interface {
	ReadReg(reg uint32) (uint32, error)
	WriteReg(reg uint32, value uint32) error

	ReadRegFast(reg uint32) (uint32, error)
	WriteRegFast(reg uint32, value uint32) error
}

// readPoll re-reads reg until all mustSet bits read 1 and all mustClear
// bits read 0, or the retry budget runs out. The register is read fresh
// on every iteration, the target mutates it asynchronously. The last
// value read is returned in both outcomes for postmortem diagnosis.
func (k *KinetisDebug) readPoll(reg uint32, mustSet uint32, mustClear uint32, retries int) (uint32, error) {
	var lastValue uint32

	for i := 0; i < retries; i++ {
		value, err := k.ap.ReadReg(reg)

		if err != nil {
			return lastValue, err
		}

		lastValue = value

		if (value&mustSet) == mustSet && (value&mustClear) == 0 {
			return value, nil
		}
	}

	return lastValue, newProbeError(
		fmt.Sprintf("poll of register %08x timed out after %d tries (last value %08x)", reg, retries, lastValue),
		errorTimeout)
}
