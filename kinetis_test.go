// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// status values for the happy reset path: in reset-settled state, then
// reset executing, then out of reset with flash ready and unsecured
func scriptResetSequence(ap *fakeAccessPort) {
	ap.script[regMdmStatus] = []uint32{
		mdmStatusSysNReset,
		0,
		mdmStatusSysNReset | mdmStatusFlashReady,
	}
}

func TestDetectSupportedChip(t *testing.T) {
	ap := newFakeAccessPort()
	ap.regs[regMdmIdr] = 0x001C0000

	require.NoError(t, NewKinetisDebug(ap).Detect())
}

func TestDetectRejectsUnknownPeripheral(t *testing.T) {
	ap := newFakeAccessPort()
	ap.regs[regMdmIdr] = 0x001C0001

	err := NewKinetisDebug(ap).Detect()

	require.Error(t, err)
	assert.Equal(t, errorUnsupportedDevice, probeErrorCodeOf(err))

	// a wrong signature is a different chip family, nothing may be
	// written to it
	assert.Empty(t, ap.writes)
}

func TestStartupStopsAfterFailedDetect(t *testing.T) {
	ap := newFakeAccessPort()
	ap.regs[regMdmIdr] = 0xDEADBEEF

	err := NewKinetisDebug(ap).Startup()

	require.Error(t, err)
	assert.Empty(t, ap.writes)
	assert.Len(t, ap.reads, 1)
}

func TestResetHaltSequence(t *testing.T) {
	logger.SetLevel(logrus.InfoLevel)

	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	scriptResetSequence(ap)

	// halted bit appears on the fifth attempt of the race
	ap.script[regMemDrw] = []uint32{0, 0, 0, 0, dhcsrStatusHalt | 0x3}

	require.NoError(t, k.ResetHalt())

	// control register sequencing: hold reset, system reset, release
	controlWrites := ap.writesTo(regMdmControl)
	require.Len(t, controlWrites, 3)
	assert.Equal(t, mdmControlCoreHoldReset, controlWrites[0].value)
	assert.Equal(t, mdmControlSysResetReq, controlWrites[1].value)
	assert.Equal(t, uint32(0), controlWrites[2].value)

	// memory window: primed without auto-increment, then restored to
	// defaults exactly once after the race
	cswWrites := ap.writesTo(regMemCsw)
	require.Len(t, cswWrites, 2)
	assert.Equal(t, cswDbgSwEnable|cswMasterDebug|cswHProt|csw32Bit|cswAddrIncOff, cswWrites[0].value)
	assert.Equal(t, cswDefaults, cswWrites[1].value)

	tarWrites := ap.writesTo(regMemTar)
	require.Len(t, tarWrites, 1)
	assert.Equal(t, regScbDhcsr, tarWrites[0].value)

	// five attempts, each one fast write plus one fast read
	drwWrites := ap.writesTo(regMemDrw)
	require.Len(t, drwWrites, 5)

	for _, w := range drwWrites {
		assert.True(t, w.fast)
		assert.Equal(t, dhcsrHaltRequest, w.value)
	}

	// diagnostics muted for every race iteration, restored afterwards
	require.NotEmpty(t, ap.fastLevels)
	for _, level := range ap.fastLevels {
		assert.Equal(t, logrus.PanicLevel, level)
	}
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestResetHaltStopsWhenResetNeverSettles(t *testing.T) {
	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	// reset line reads as asserted forever
	ap.regs[regMdmStatus] = 0

	err := k.ResetHalt()

	require.Error(t, err)
	assert.Equal(t, errorTimeout, probeErrorCodeOf(err))

	// phase 1 failed, so no later phase may touch the target
	controlWrites := ap.writesTo(regMdmControl)
	require.Len(t, controlWrites, 1)
	assert.Equal(t, mdmControlCoreHoldReset, controlWrites[0].value)

	assert.Empty(t, ap.writesTo(regMemCsw))
	assert.Empty(t, ap.writesTo(regMemTar))
	assert.Empty(t, ap.writesTo(regMemDrw))
}

func TestResetHaltRestoresMemPortAfterFailedRace(t *testing.T) {
	logger.SetLevel(logrus.InfoLevel)

	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	scriptResetSequence(ap)

	// DHCSR never shows the halted bit
	ap.regs[regMemDrw] = 0

	err := k.ResetHalt()

	require.Error(t, err)
	assert.Equal(t, errorTimeout, probeErrorCodeOf(err))

	// the race burns its whole budget
	assert.Len(t, ap.writesTo(regMemDrw), haltRaceRetries)

	// cleanup runs on the failure path too, exactly once
	cswWrites := ap.writesTo(regMemCsw)
	require.Len(t, cswWrites, 2)
	assert.Equal(t, cswDefaults, cswWrites[1].value)

	// verbosity restored even though the race failed
	for _, level := range ap.fastLevels {
		assert.Equal(t, logrus.PanicLevel, level)
	}
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestResetHaltPropagatesTransportFailure(t *testing.T) {
	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	ap.writeErr[regMdmControl] = newProbeError("usb gone", errorTransport)

	err := k.ResetHalt()

	require.Error(t, err)
	assert.Equal(t, errorTransport, probeErrorCodeOf(err))
	assert.Empty(t, ap.reads)
}

func TestStartupRunsAllPhases(t *testing.T) {
	ap := newFakeAccessPort()
	ap.mem = make(map[uint32]uint32)
	ap.regs[regMdmIdr] = mdmIdrKinetis

	scriptResetSequence(ap)
	ap.script[regMemDrw] = []uint32{dhcsrStatusHalt}

	k := NewKinetisDebug(ap)

	require.NoError(t, k.Startup())

	// clock gates enabled and both RAM patterns written
	tarTargets := []uint32{}
	for _, w := range ap.writesTo(regMemTar) {
		tarTargets = append(tarTargets, w.value)
	}

	assert.Contains(t, tarTargets, regSimScgc5)
	assert.Contains(t, tarTargets, regSimScgc6)
	assert.Contains(t, tarTargets, ramProbeAddress)
}
