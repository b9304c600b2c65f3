// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// Debug controller for Freescale/NXP Kinetis targets. Brings a running
// or unknown-state chip into core-halted debug mode through the MDM-AP
// and AHB-AP, and recovers locked chips with a full mass erase.

package gokinetis

import (
	"fmt"
)

type KinetisDebug struct {
	ap AccessPort
}

func NewKinetisDebug(ap AccessPort) *KinetisDebug {
	return &KinetisDebug{ap: ap}
}

// Startup runs the full bring-up: identify the chip, reset it into
// debug halt and prove memory access works. Each step only runs if the
// previous one succeeded.
func (k *KinetisDebug) Startup() error {
	if err := k.Detect(); err != nil {
		return err
	}

	if err := k.ResetHalt(); err != nil {
		return err
	}

	return k.PeripheralInit()
}

// Detect makes sure we are talking to a compatible chip. The MDM-AP
// peripheral is Freescale specific, a mismatching signature means a
// different chip family, so there is nothing to retry.
func (k *KinetisDebug) Detect() error {
	idr, err := k.ap.ReadReg(regMdmIdr)

	if err != nil {
		return err
	}

	if idr != mdmIdrKinetis {
		logger.Errorf("did not find a supported MDM-AP peripheral (IDR: %08x)", idr)

		return newProbeError(
			fmt.Sprintf("unsupported MDM-AP peripheral (IDR: %08x)", idr),
			errorUnsupportedDevice)
	}

	return nil
}

// ResetHalt drives the target through a system reset and halts the
// core before any application code can run.
func (k *KinetisDebug) ResetHalt() error {

	// Put the control register in a known state, and make sure we
	// aren't already in the middle of a reset.
	if err := k.ap.WriteReg(regMdmControl, mdmControlCoreHoldReset); err != nil {
		return err
	}

	if _, err := k.readPoll(regMdmStatus, mdmStatusSysNReset, 0, resetRetries); err != nil {
		logger.Error("timed out waiting for reset line to settle: ", err)
		return err
	}

	// System reset
	if err := k.ap.WriteReg(regMdmControl, mdmControlSysResetReq); err != nil {
		return err
	}

	if _, err := k.readPoll(regMdmStatus, 0, mdmStatusSysNReset, resetRetries); err != nil {
		logger.Error("timed out waiting for system reset to begin: ", err)
		return err
	}

	if err := k.ap.WriteReg(regMdmControl, 0); err != nil {
		return err
	}

	// Wait until the flash controller is ready and the system is out of
	// reset. Also wait for the security bit to clear: early in reset the
	// chip is still determining its security status, and while the bit
	// is set the AHB-AP is disabled.
	if _, err := k.readPoll(regMdmStatus,
		mdmStatusSysNReset|mdmStatusFlashReady,
		mdmStatusSysSecurity,
		resetRetries); err != nil {

		logger.Error("timed out waiting for flash-ready, unsecured, out-of-reset state: ", err)
		return err
	}

	// Set up CSW, no auto-increment.
	if err := k.ap.WriteReg(regMemCsw,
		cswDbgSwEnable|cswMasterDebug|cswHProt|csw32Bit|cswAddrIncOff); err != nil {
		return err
	}

	// Point at the debug halt control/status register.
	if err := k.ap.WriteReg(regMemTar, regScbDhcsr); err != nil {
		return err
	}

	halted, dhcsr := k.raceForHalt()

	if halted {
		logger.Info("CPU reset & halt successful, now in debug mode")
		return nil
	}

	logger.Errorf("failed to put CPU in debug halt state (DHCSR: %08x)", dhcsr)

	return newProbeError(
		fmt.Sprintf("CPU did not reach debug halt (DHCSR: %08x)", dhcsr),
		errorTimeout)
}

// raceForHalt enables debug, requests a halt and reads back the status,
// repeatedly. This part is timing critical, we are racing against the
// watchdog timer, so it uses the fast AP path and skips memWait.
// The attempts are expected to fail a bunch before succeeding, so
// diagnostics are muted for the duration of the loop.
//
// The memory port is restored to its default addressing mode exactly
// once after the loop, whether or not the core halted.
func (k *KinetisDebug) raceForHalt() (bool, uint32) {
	defer muteLogger()()

	halted := false
	var dhcsr uint32

	for retries := haltRaceRetries; retries > 0; retries-- {
		if err := k.ap.WriteRegFast(regMemDrw, dhcsrHaltRequest); err != nil {
			continue
		}

		value, err := k.ap.ReadRegFast(regMemDrw)

		if err != nil {
			continue
		}

		dhcsr = value

		if (dhcsr & dhcsrStatusHalt) != 0 {
			halted = true
			break
		}
	}

	// Mandatory cleanup, not conditional on the outcome above.
	if err := k.initMemPort(); err != nil {
		logger.Debug("could not restore memory port defaults: ", err)
	}

	return halted, dhcsr
}

// PeripheralInit enables the peripheral clocks the platform needs and
// verifies that AHB-AP memory access actually works.
func (k *KinetisDebug) PeripheralInit() error {

	// Enable peripheral clocks. These registers are write-only intent,
	// there is no readback check.
	if err := k.memStore(regSimScgc5, simScgc5ClockGates); err != nil {
		return err
	}

	if err := k.memStore(regSimScgc6, simScgc6Ftm0|simScgc6Ftm1|simScgc6Ftfl); err != nil {
		return err
	}

	// Test AHB-AP: can we successfully write to RAM? Both patterns must
	// round-trip, a single one could pass against a stuck bus.
	if err := k.memStoreAndVerify(ramProbeAddress, ramProbePattern1); err != nil {
		return err
	}

	return k.memStoreAndVerify(ramProbeAddress, ramProbePattern2)
}
