// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// Memory-mapped access to the target through the AHB-AP window,
// built on the standard AP path.

package gokinetis

import (
	"fmt"
)

// initMemPort restores the memory access window to its default
// addressing mode (32-bit transfers, single auto-increment).
func (k *KinetisDebug) initMemPort() error {
	return k.ap.WriteReg(regMemCsw, cswDefaults)
}

// memWait drains an in-progress transfer before the next access.
func (k *KinetisDebug) memWait() error {
	if _, err := k.readPoll(regMemCsw, 0, cswTrInProg, memWaitRetries); err != nil {
		logger.Error("timed out waiting for memory transfer to complete: ", err)
		return err
	}

	return nil
}

func (k *KinetisDebug) memLoad(addr uint32) (uint32, error) {
	if err := k.ap.WriteReg(regMemTar, addr); err != nil {
		return 0, err
	}

	return k.ap.ReadReg(regMemDrw)
}

func (k *KinetisDebug) memStore(addr uint32, value uint32) error {
	if err := k.ap.WriteReg(regMemTar, addr); err != nil {
		return err
	}

	if err := k.ap.WriteReg(regMemDrw, value); err != nil {
		return err
	}

	return k.memWait()
}

// memStoreAndVerify writes value and reads it back through the same
// window. A mismatch means the memory path itself is broken.
func (k *KinetisDebug) memStoreAndVerify(addr uint32, value uint32) error {
	if err := k.memStore(addr, value); err != nil {
		return err
	}

	readback, err := k.memLoad(addr)

	if err != nil {
		return err
	}

	if readback != value {
		logger.Errorf("memory verify failed at %08x: wrote %08x, read back %08x", addr, value, readback)

		return newProbeError(
			fmt.Sprintf("memory verify failed at %08x (wrote %08x, read %08x)", addr, value, readback),
			errorIntegrity)
	}

	return nil
}
