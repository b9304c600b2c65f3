// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

// An access port register address carries the ADIv5 AP selection in
// bits 31:24 and the register offset in the low byte.

// MDM-AP (Freescale Miscellaneous Debug Module), AP 1
const (
	regMdmStatus  uint32 = 0x01000000
	regMdmControl uint32 = 0x01000004
	regMdmIdr     uint32 = 0x010000FC

	// IDR signature of the Kinetis MDM-AP, the only peripheral this
	// library supports
	mdmIdrKinetis uint32 = 0x001C0000
)

// MDM-AP status register bits
const (
	mdmStatusFlashEraseAck   uint32 = 1 << 0
	mdmStatusFlashReady      uint32 = 1 << 1
	mdmStatusSysSecurity     uint32 = 1 << 2
	mdmStatusSysNReset       uint32 = 1 << 3
	mdmStatusMassEraseEnable uint32 = 1 << 5
	mdmStatusCoreHalted      uint32 = 1 << 16
)

// MDM-AP control register bits
const (
	mdmControlMassErase     uint32 = 1 << 0
	mdmControlDebugDisable  uint32 = 1 << 1
	mdmControlDebugRequest  uint32 = 1 << 2
	mdmControlSysResetReq   uint32 = 1 << 3
	mdmControlCoreHoldReset uint32 = 1 << 4
)

// MEM-AP (AHB-AP), AP 0
const (
	regMemCsw uint32 = 0x00000000
	regMemTar uint32 = 0x00000004
	regMemDrw uint32 = 0x0000000C
)

// MEM-AP CSW fields
const (
	cswDbgSwEnable   uint32 = 1 << 31
	cswMasterDebug   uint32 = 1 << 29
	cswHProt         uint32 = 1 << 25
	cswTrInProg      uint32 = 1 << 7
	csw32Bit         uint32 = 2
	cswAddrIncOff    uint32 = 0x00
	cswAddrIncSingle uint32 = 0x10

	// default addressing mode, restored by initMemPort
	cswDefaults = cswDbgSwEnable | cswMasterDebug | cswHProt | csw32Bit | cswAddrIncSingle
)

// Cortex-M core debug registers, reached through the MEM-AP window
const (
	regScbDhcsr uint32 = 0xE000EDF0

	// DBGKEY | C_HALT | C_DEBUGEN
	dhcsrHaltRequest uint32 = 0xA05F0003
	dhcsrStatusHalt  uint32 = 1 << 17
)

// Kinetis SIM clock gating registers
const (
	regSimScgc5 uint32 = 0x40048038
	regSimScgc6 uint32 = 0x4004803C

	simScgc5ClockGates uint32 = 0x00043F82

	simScgc6Ftfl uint32 = 1 << 0
	simScgc6Ftm0 uint32 = 1 << 24
	simScgc6Ftm1 uint32 = 1 << 25
)

// RAM round-trip probe used by PeripheralInit. The two patterns have
// opposite bit polarities so a bus stuck at a constant cannot pass both.
const (
	ramProbeAddress  uint32 = 0x20000000
	ramProbePattern1 uint32 = 0x31415927
	ramProbePattern2 uint32 = 0x76543210
)

// Per-phase retry budgets. There is no wall clock here, the unit of
// waiting is one AP register round-trip.
const (
	// system resets can be slow, give them more time than the default
	resetRetries = 2000

	// racing the watchdog, iterations must stay cheap
	haltRaceRetries = 200

	memWaitRetries = 100

	massEraseBeginRetries    = 1000
	massEraseCompleteRetries = 10000
)

// probe adapter command set (ST-Link api-v2 subset)
const (
	cmdGetVersion     = 0xF1
	cmdDebug          = 0xF2
	cmdGetCurrentMode = 0xF5

	debugExit            = 0x21
	debugApiV2Enter      = 0x30
	debugApiV2DriveNrst  = 0x3C
	debugEnterSwdNoReset = 0xa3

	debugApiV2ReadDapRegister  = 0x45
	debugApiV2WriteDapRegister = 0x46
	debugApiV2InitAccessPort   = 0x4B
)

// probe adapter status codes, first byte of every debug response
const (
	debugErrorOk    = 0x80
	debugErrorFault = 0x81

	swdAccessPortWait        = 0x10
	swdAccessPortFault       = 0x11
	swdAccessPortError       = 0x12
	swdAccessPortParityError = 0x13
	swdDebugPortWait         = 0x14
	swdDebugPortFault        = 0x15
	swdDebugPortError        = 0x16
	swdDebugPortParityError  = 0x17
)

// probe adapter device modes
const (
	deviceModeDFU   = 0x00
	deviceModeMass  = 0x01
	deviceModeDebug = 0x02
)

// usb endpoint definitions
const (
	usbRxEndpointNo = 1
	usbTxEndpointNo = 2

	cmdBufferSize  = 16
	dataBufferSize = 4096
)

const (
	maximumWaitRetries              = 8
	debugAccessPortSelectionMaximum = 255
)
