// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package gokinetis

import (
	"errors"
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/google/gousb"
)

const AllSupportedVIds = 0xFFFF
const AllSupportedPIds = 0xFFFF

var probeSupportedVids = []gousb.ID{0x0483}
var probeSupportedPids = []gousb.ID{0x3748, 0x374b, 0x374d, 0x374e, 0x374f, 0x3752, 0x3753}

type probeVersion struct {
	major int
	jtag  int

	// direct DAP register access needs firmware J24 or later
	hasDapRegAccess bool
}

// SwdProbe is a USB debug probe adapter speaking the api-v2 command
// set. It implements AccessPort on top of the adapter's raw DAP
// register commands.
type SwdProbe struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface

	rxEndpoint *gousb.InEndpoint
	txEndpoint *gousb.OutEndpoint

	version probeVersion

	openedAps bitmap.Bitmap
}

type SwdProbeConfig struct {
	vid    gousb.ID
	pid    gousb.ID
	serial string
}

func NewSwdProbeConfig(vid gousb.ID, pid gousb.ID, serial string) *SwdProbeConfig {
	return &SwdProbeConfig{
		vid:    vid,
		pid:    pid,
		serial: serial,
	}
}

func NewSwdProbe(config *SwdProbeConfig) (*SwdProbe, error) {
	var err error
	var devices []*gousb.Device

	probe := &SwdProbe{
		openedAps: bitmap.New(debugAccessPortSelectionMaximum + 1),
	}

	if config.vid == AllSupportedVIds && config.pid == AllSupportedPIds {
		devices, err = usbFindDevices(probeSupportedVids, probeSupportedPids)

	} else if config.vid == AllSupportedVIds {
		devices, err = usbFindDevices(probeSupportedVids, []gousb.ID{config.pid})

	} else if config.pid == AllSupportedPIds {
		devices, err = usbFindDevices([]gousb.ID{config.vid}, probeSupportedPids)

	} else {
		devices, err = usbFindDevices([]gousb.ID{config.vid}, []gousb.ID{config.pid})
	}

	if err != nil {
		return nil, err
	}

	if len(devices) == 0 {
		return nil, errors.New("could not find any supported probe adapter connected to computer")
	}

	if config.serial == "" && len(devices) > 1 {
		return nil, errors.New("could not identify exact probe adapter. (Perhaps a serial no is missing?)")
	} else if len(devices) == 1 && config.serial == "" {
		probe.usbDevice = devices[0]
	} else {
		for _, dev := range devices {
			devSerialNo, _ := dev.SerialNumber()

			logger.Debugf("compare serial no %s with number %s", devSerialNo, config.serial)

			if devSerialNo == config.serial {
				probe.usbDevice = dev

				logger.Infof("found probe adapter with serial number %s", devSerialNo)
			}
		}
	}

	if probe.usbDevice == nil {
		return nil, errors.New("could not find probe adapter by given parameters")
	}

	probe.usbConfig, err = probe.usbDevice.Config(1)
	if err != nil {
		logger.Debug(err)
		return nil, errors.New("could not request configuration #1 for probe adapter")
	}

	probe.usbInterface, err = probe.usbConfig.Interface(0, 0)
	if err != nil {
		logger.Debug(err)
		return nil, errors.New("could not claim interface 0,0 for probe adapter")
	}

	probe.rxEndpoint, err = probe.usbInterface.InEndpoint(usbRxEndpointNo)
	if err != nil {
		return nil, errors.New("could not open in endpoint of probe adapter")
	}

	probe.txEndpoint, err = probe.usbInterface.OutEndpoint(usbTxEndpointNo)
	if err != nil {
		return nil, errors.New("could not open out endpoint of probe adapter")
	}

	if err = probe.usbParseVersion(); err != nil {
		return nil, err
	}

	if !probe.version.hasDapRegAccess {
		return nil, fmt.Errorf("probe firmware V%dJ%d has no DAP register access, J24 or later required",
			probe.version.major, probe.version.jtag)
	}

	if err = probe.usbEnterSwdMode(); err != nil {
		return nil, err
	}

	return probe, nil
}

func (p *SwdProbe) Close() {
	if p.usbDevice != nil {
		logger.Debug("closing probe adapter")

		if err := p.usbLeaveDebugMode(); err != nil {
			logger.Debug("could not leave debug mode: ", err)
		}

		p.usbInterface.Close()
		p.usbConfig.Close()
		p.usbDevice.Close()
	}
}

func (p *SwdProbe) usbParseVersion() error {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdGetVersion)

	if err := p.usbTransferNoErrCheck(ctx, 6); err != nil {
		return err
	}

	version := ctx.dataBuf.ReadUint16BE()

	p.version.major = int((version >> 12) & 0x0f)
	p.version.jtag = int((version >> 6) & 0x3f)

	// API to access DAP registers from J24
	p.version.hasDapRegAccess = p.version.major >= 2 && p.version.jtag >= 24

	logger.Debugf("parsed probe adapter version V%dJ%d", p.version.major, p.version.jtag)

	return nil
}

func (p *SwdProbe) usbCurrentMode() (byte, error) {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdGetCurrentMode)

	if err := p.usbTransferNoErrCheck(ctx, 2); err != nil {
		return 0, err
	}

	return ctx.DataBytes()[0], nil
}

func (p *SwdProbe) usbEnterSwdMode() error {
	mode, err := p.usbCurrentMode()

	if err != nil {
		logger.Error("could not get probe adapter mode")
		return err
	}

	logger.Tracef("probe adapter mode before switching: 0x%02x", mode)

	if mode == deviceModeDFU {
		return errors.New("probe adapter is in DFU mode, cannot debug")
	}

	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2Enter)
	ctx.cmdBuf.WriteByte(debugEnterSwdNoReset)

	return p.usbCmdAllowRetry(ctx, 2)
}

func (p *SwdProbe) usbLeaveDebugMode() error {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugExit)

	return p.usbTransferNoErrCheck(ctx, 0)
}

func (p *SwdProbe) AssertSrst(srst byte) error {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2DriveNrst)
	ctx.cmdBuf.WriteByte(srst)

	return p.usbCmdAllowRetry(ctx, 2)
}

// openAccessPort initializes an AP on the adapter before its first use.
// The adapter keeps the port open afterwards, so each selection is
// initialized once, tracked in the openedAps bitmap.
func (p *SwdProbe) openAccessPort(apsel byte) error {
	if p.openedAps.Get(int(apsel)) {
		return nil
	}

	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2InitAccessPort)
	ctx.cmdBuf.WriteByte(apsel)

	if err := p.usbCmdAllowRetry(ctx, 2); err != nil {
		return err
	}

	logger.Debugf("AP %d enabled", apsel)
	p.openedAps.Set(int(apsel), true)

	return nil
}

func (p *SwdProbe) dapReadCtx(reg uint32) *transferCtx {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2ReadDapRegister)
	ctx.cmdBuf.WriteUint16LE(uint16(reg >> 24))
	ctx.cmdBuf.WriteUint16LE(uint16(reg & 0xFF))

	return ctx
}

func (p *SwdProbe) dapWriteCtx(reg uint32, value uint32) *transferCtx {
	ctx := p.initTransfer(transferIncoming)

	ctx.cmdBuf.WriteByte(cmdDebug)
	ctx.cmdBuf.WriteByte(debugApiV2WriteDapRegister)
	ctx.cmdBuf.WriteUint16LE(uint16(reg >> 24))
	ctx.cmdBuf.WriteUint16LE(uint16(reg & 0xFF))
	ctx.cmdBuf.WriteUint32LE(value)

	return ctx
}

// ReadReg is the standard AP read path, with wait-status retry.
func (p *SwdProbe) ReadReg(reg uint32) (uint32, error) {
	if err := p.openAccessPort(byte(reg >> 24)); err != nil {
		return 0, err
	}

	ctx := p.dapReadCtx(reg)

	if err := p.usbCmdAllowRetry(ctx, 8); err != nil {
		logger.Debugf("AP read of %08x failed: %v", reg, err)
		return 0, err
	}

	ctx.dataBuf.ReadUint32LE() // status word

	return ctx.dataBuf.ReadUint32LE(), nil
}

// WriteReg is the standard AP write path, with wait-status retry.
func (p *SwdProbe) WriteReg(reg uint32, value uint32) error {
	if err := p.openAccessPort(byte(reg >> 24)); err != nil {
		return err
	}

	ctx := p.dapWriteCtx(reg, value)

	if err := p.usbCmdAllowRetry(ctx, 2); err != nil {
		logger.Debugf("AP write of %08x failed: %v", reg, err)
		return err
	}

	return nil
}

// ReadRegFast performs exactly one round-trip, no retry, no logging.
// Only for the timing-critical halt race, the AP must already be open.
func (p *SwdProbe) ReadRegFast(reg uint32) (uint32, error) {
	ctx := p.dapReadCtx(reg)

	if err := p.usbTransferErrCheck(ctx, 8); err != nil {
		return 0, err
	}

	ctx.dataBuf.ReadUint32LE() // status word

	return ctx.dataBuf.ReadUint32LE(), nil
}

// WriteRegFast performs exactly one round-trip, no retry, no logging.
func (p *SwdProbe) WriteRegFast(reg uint32, value uint32) error {
	return p.usbTransferErrCheck(p.dapWriteCtx(reg, value), 2)
}
