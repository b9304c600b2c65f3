// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

import (
	"fmt"
)

// FlashMassErase erases all flash, even if some of it is protected,
// recovering chips that locked themselves out of debug access. It only
// requires Detect to have succeeded, the core does not need to be
// halted.
//
// The erase is destructive, so every precondition failure reports the
// specific reason it refused to run. The three timeout families (never
// began, never completed, controller not ready afterwards) stay
// distinct as well, they point at different hardware problems.
func (k *KinetisDebug) FlashMassErase() error {
	status, err := k.ap.ReadReg(regMdmStatus)

	if err != nil {
		return err
	}

	if (status & mdmStatusFlashReady) == 0 {
		logger.Error("flash controller not ready before mass erase")
		return newProbeError("flash controller not ready before mass erase", errorPolicyRefused)
	}

	if (status & mdmStatusFlashEraseAck) != 0 {
		logger.Error("mass erase already in progress")
		return newProbeError("mass erase already in progress", errorPolicyRefused)
	}

	if (status & mdmStatusMassEraseEnable) == 0 {
		logger.Error("mass erase is disabled on this chip")
		return newProbeError("mass erase is disabled", errorPolicyRefused)
	}

	logger.Info("beginning flash mass erase operation")

	// The target requires reset to be held for the whole erase, so both
	// bits go out in one write.
	if err := k.ap.WriteReg(regMdmControl, mdmControlCoreHoldReset|mdmControlMassErase); err != nil {
		return err
	}

	// Wait for the mass erase to begin (ACK bit set).
	if lastStatus, err := k.readPoll(regMdmStatus,
		mdmStatusFlashEraseAck, 0, massEraseBeginRetries); err != nil {

		logger.Errorf("timed out waiting for mass erase to begin (status: %08x)", lastStatus)
		return newProbeError(
			fmt.Sprintf("mass erase failed to begin (status: %08x)", lastStatus),
			errorTimeout)
	}

	// Wait for it to complete. The target signals completion by
	// clearing the request bit in the control register itself, there is
	// no dedicated done bit, so poll our own write back.
	if lastControl, err := k.readPoll(regMdmControl,
		0, mdmControlMassErase, massEraseCompleteRetries); err != nil {

		logger.Errorf("timed out waiting for mass erase to complete (control: %08x)", lastControl)
		return newProbeError(
			fmt.Sprintf("mass erase failed to complete (control: %08x)", lastControl),
			errorTimeout)
	}

	// The erase must leave the flash controller usable.
	status, err = k.ap.ReadReg(regMdmStatus)

	if err != nil {
		return err
	}

	if (status & mdmStatusFlashReady) == 0 {
		logger.Errorf("flash controller not ready after mass erase (status: %08x)", status)
		return newProbeError("flash controller not ready after mass erase", errorTimeout)
	}

	logger.Info("flash mass erase complete")

	return nil
}
