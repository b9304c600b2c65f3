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

type regAccess struct {
	reg   uint32
	value uint32
	fast  bool
}

// fakeAccessPort is a scripted stand-in for the probe transport.
//
// Reads pop per-register value sequences from script; a drained
// sequence falls back to the static regs map. When mem is non-nil the
// TAR/DRW pair emulates the AHB memory window.
type fakeAccessPort struct {
	script map[uint32][]uint32
	regs   map[uint32]uint32

	mem     map[uint32]uint32
	lastTar uint32

	reads  []regAccess
	writes []regAccess

	readErr  map[uint32]error
	writeErr map[uint32]error

	// logger verbosity observed during fast-path accesses
	fastLevels []logrus.Level
}

func newFakeAccessPort() *fakeAccessPort {
	return &fakeAccessPort{
		script:   make(map[uint32][]uint32),
		regs:     make(map[uint32]uint32),
		readErr:  make(map[uint32]error),
		writeErr: make(map[uint32]error),
	}
}

func (f *fakeAccessPort) read(reg uint32, fast bool) (uint32, error) {
	if fast {
		f.fastLevels = append(f.fastLevels, logger.GetLevel())
	}

	if err := f.readErr[reg]; err != nil {
		return 0, err
	}

	var value uint32

	if seq, ok := f.script[reg]; ok && len(seq) > 0 {
		value = seq[0]

		if len(seq) == 1 {
			delete(f.script, reg)
		} else {
			f.script[reg] = seq[1:]
		}
	} else if f.mem != nil && reg == regMemDrw {
		value = f.mem[f.lastTar]
	} else {
		value = f.regs[reg]
	}

	f.reads = append(f.reads, regAccess{reg: reg, value: value, fast: fast})

	return value, nil
}

func (f *fakeAccessPort) write(reg uint32, value uint32, fast bool) error {
	if fast {
		f.fastLevels = append(f.fastLevels, logger.GetLevel())
	}

	if err := f.writeErr[reg]; err != nil {
		return err
	}

	f.writes = append(f.writes, regAccess{reg: reg, value: value, fast: fast})

	if reg == regMemTar {
		f.lastTar = value
	}

	if f.mem != nil && reg == regMemDrw {
		f.mem[f.lastTar] = value
	}

	return nil
}

func (f *fakeAccessPort) ReadReg(reg uint32) (uint32, error) {
	return f.read(reg, false)
}

func (f *fakeAccessPort) WriteReg(reg uint32, value uint32) error {
	return f.write(reg, value, false)
}

func (f *fakeAccessPort) ReadRegFast(reg uint32) (uint32, error) {
	return f.read(reg, true)
}

func (f *fakeAccessPort) WriteRegFast(reg uint32, value uint32) error {
	return f.write(reg, value, true)
}

func (f *fakeAccessPort) writesTo(reg uint32) []regAccess {
	var result []regAccess

	for _, w := range f.writes {
		if w.reg == reg {
			result = append(result, w)
		}
	}

	return result
}

func (f *fakeAccessPort) readsFrom(reg uint32) []regAccess {
	var result []regAccess

	for _, r := range f.reads {
		if r.reg == reg {
			result = append(result, r)
		}
	}

	return result
}

func TestReadPollSetAndClearSemantics(t *testing.T) {
	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	// first value has the must-set bits but also the must-clear bit,
	// so it must not satisfy the poll
	ap.script[regMdmStatus] = []uint32{
		mdmStatusSysNReset | mdmStatusFlashReady | mdmStatusSysSecurity,
		mdmStatusSysNReset | mdmStatusFlashReady,
	}

	value, err := k.readPoll(regMdmStatus,
		mdmStatusSysNReset|mdmStatusFlashReady,
		mdmStatusSysSecurity, 10)

	require.NoError(t, err)
	assert.Equal(t, mdmStatusSysNReset|mdmStatusFlashReady, value)
	assert.Len(t, ap.reads, 2)
}

func TestReadPollTimeoutReturnsLastValue(t *testing.T) {
	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	ap.regs[regMdmStatus] = mdmStatusSysSecurity

	value, err := k.readPoll(regMdmStatus, mdmStatusFlashReady, 0, 10)

	require.Error(t, err)
	assert.Equal(t, errorTimeout, probeErrorCodeOf(err))
	assert.Equal(t, mdmStatusSysSecurity, value)

	// the register must be read fresh on every iteration
	assert.Len(t, ap.reads, 10)
}

func TestReadPollPropagatesTransportFailure(t *testing.T) {
	ap := newFakeAccessPort()
	k := NewKinetisDebug(ap)

	ap.readErr[regMdmStatus] = newProbeError("usb gone", errorTransport)

	_, err := k.readPoll(regMdmStatus, mdmStatusFlashReady, 0, 10)

	require.Error(t, err)
	assert.Equal(t, errorTransport, probeErrorCodeOf(err))
	assert.Empty(t, ap.reads)
}
