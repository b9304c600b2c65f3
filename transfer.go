// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

// this code is mainly inspired and based on the openocd project source code
// for detailed information see

// https://sourceforge.net/p/openocd/code

package gokinetis

import (
	"fmt"
	"time"
)

type transferDirection uint8

const (
	transferIncoming transferDirection = 0
	transferOutgoing                   = 1
)

type transferCtx struct {
	direction transferDirection
	cmdBuf    *Buffer
	dataBuf   *Buffer
}

func (ctx *transferCtx) DataBytes() []byte {
	return ctx.dataBuf.Bytes()
}

func (p *SwdProbe) initTransfer(direction transferDirection) *transferCtx {
	return &transferCtx{
		direction: direction,
		cmdBuf:    NewBuffer(cmdBufferSize),
		dataBuf:   NewBuffer(dataBufferSize),
	}
}

func (p *SwdProbe) usbTransferReadWrite(ctx *transferCtx, size uint32) error {
	cmd := ctx.cmdBuf.Bytes()

	// the adapter expects fixed-size command packets
	if len(cmd) < cmdBufferSize {
		cmd = append(cmd, make([]byte, cmdBufferSize-len(cmd))...)
	}

	if _, err := usbWrite(p.txEndpoint, cmd); err != nil {
		return err
	}

	if ctx.direction == transferIncoming && size > 0 {
		response := make([]byte, size)

		if _, err := usbRead(p.rxEndpoint, response); err != nil {
			return err
		}

		ctx.dataBuf.Write(response)
	}

	return nil
}

func (p *SwdProbe) usbTransferNoErrCheck(ctx *transferCtx, size uint32) error {
	return p.usbTransferReadWrite(ctx, size)
}

func (p *SwdProbe) usbTransferErrCheck(ctx *transferCtx, size uint32) error {
	if err := p.usbTransferReadWrite(ctx, size); err != nil {
		return err
	}

	return p.usbErrorCheck(ctx)
}

// usbErrorCheck converts the adapter status code held in the first byte
// of a response to a library error. Wait statuses come back with their
// own error code so usbCmdAllowRetry can back off and retry them.
func (p *SwdProbe) usbErrorCheck(ctx *transferCtx) error {
	data := ctx.DataBytes()

	if len(data) == 0 {
		return newProbeError("empty response from probe adapter", errorTransport)
	}

	switch data[0] {
	case debugErrorOk:
		return nil

	case debugErrorFault:
		return newProbeError(fmt.Sprintf("SWD fault response (0x%x)", debugErrorFault), errorTransport)

	case swdAccessPortWait:
		return newProbeError(fmt.Sprintf("wait status SWD_AP_WAIT (0x%x)", swdAccessPortWait), errorWait)

	case swdDebugPortWait:
		return newProbeError(fmt.Sprintf("wait status SWD_DP_WAIT (0x%x)", swdDebugPortWait), errorWait)

	case swdAccessPortFault:
		return newProbeError("SWD_AP_FAULT", errorTransport)

	case swdAccessPortError:
		return newProbeError("SWD_AP_ERROR", errorTransport)

	case swdAccessPortParityError:
		return newProbeError("SWD_AP_PARITY_ERROR", errorTransport)

	case swdDebugPortFault:
		return newProbeError("SWD_DP_FAULT", errorTransport)

	case swdDebugPortError:
		return newProbeError("SWD_DP_ERROR", errorTransport)

	case swdDebugPortParityError:
		return newProbeError("SWD_DP_PARITY_ERROR", errorTransport)

	default:
		return newProbeError(fmt.Sprintf("unknown/unexpected probe status code 0x%x", data[0]), errorTransport)
	}
}

// usbCmdAllowRetry issues an adapter command, retrying with exponential
// backoff on any wait status response. This is the standard AP path;
// the fast path skips it on purpose.
func (p *SwdProbe) usbCmdAllowRetry(ctx *transferCtx, size uint32) error {
	retries := 0

	for {
		// the command packet survives in cmdBuf, only the response is
		// discarded between attempts
		ctx.dataBuf.Reset()

		if err := p.usbTransferNoErrCheck(ctx, size); err != nil {
			return err
		}

		err := p.usbErrorCheck(ctx)

		if err != nil && probeErrorCodeOf(err) == errorWait && retries < maximumWaitRetries {
			delay := time.Duration(1<<retries) * time.Millisecond
			retries++

			logger.Debugf("cmdAllowRetry wait status, retry %d, delaying %v", retries, delay)
			time.Sleep(delay)

			continue
		}

		return err
	}
}
