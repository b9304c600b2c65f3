// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

type probeErrorCode int

const (
	errorOK                probeErrorCode = 0
	errorWait              probeErrorCode = -1
	errorTransport         probeErrorCode = -2
	errorUnsupportedDevice probeErrorCode = -3
	errorTimeout           probeErrorCode = -4
	errorIntegrity         probeErrorCode = -5
	errorPolicyRefused     probeErrorCode = -6
)

// probeError distinguishes the failure families of a debug session so
// that a timed-out poll, a broken memory path and a refused mass erase
// remain separately observable to callers and in the logs.
type probeError struct {
	message string
	code    probeErrorCode
}

func (e *probeError) Error() string {
	return e.message
}

func newProbeError(message string, code probeErrorCode) error {
	return &probeError{message, code}
}

func probeErrorCodeOf(err error) probeErrorCode {
	if err == nil {
		return errorOK
	}

	if pe, ok := err.(*probeError); ok {
		return pe.code
	}

	return errorTransport
}
