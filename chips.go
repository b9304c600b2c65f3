// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

type KinetisChipInfo struct {
	RamStart  uint32
	RamSize   uint32
	FlashSize uint32
}

// Kinetis K20 parts share one MDM-AP signature, so Detect cannot tell
// them apart. The table maps part names to their memory layout for
// tools that know which chip they expect. SRAM straddles 0x20000000,
// the lower half sits below it.
var supportedKinetisChips = map[string]KinetisChipInfo{
	"MK20DX32VLH5":  {0x1FFFF000, 0x2000, 0x8000},
	"MK20DX64VLH7":  {0x1FFFE000, 0x4000, 0x10000},
	"MK20DX128VLH5": {0x1FFFE000, 0x4000, 0x20000},
	"MK20DX128VLH7": {0x1FFFC000, 0x8000, 0x20000},
	"MK20DX256VLH7": {0x1FFF8000, 0x10000, 0x40000},
}

func GetChipInformation(chipName string) *KinetisChipInfo {
	if val, ok := supportedKinetisChips[chipName]; ok {
		return &val
	}

	return nil
}
