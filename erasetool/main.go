// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"

	"github.com/bbnote/gokinetis"
	log "github.com/sirupsen/logrus"
)

func main() {
	erase := flag.Bool("erase", false, "mass erase the chip after bring-up (destroys all flash contents)")
	chipName := flag.String("chip", "", "expected chip name, e.g. MK20DX64VLH7")
	serial := flag.String("serial", "", "serial number of the probe adapter")
	flag.Parse()

	log.Info("starting kinetis recovery tool...")

	if *chipName != "" {
		info := gokinetis.GetChipInformation(*chipName)

		if info == nil {
			log.Fatalf("unknown chip %s", *chipName)
		}

		log.Infof("%s: %d KiB flash, %d KiB RAM at %08x",
			*chipName, info.FlashSize/1024, info.RamSize/1024, info.RamStart)
	}

	err := gokinetis.InitializeUSB()

	if err != nil {
		log.Panic(err)
	}

	defer gokinetis.CloseUSB()

	config := gokinetis.NewSwdProbeConfig(gokinetis.AllSupportedVIds, gokinetis.AllSupportedPIds, *serial)

	probe, err := gokinetis.NewSwdProbe(config)

	if err != nil {
		log.Fatal("could not open a probe adapter: ", err)
	}

	defer probe.Close()

	target := gokinetis.NewKinetisDebug(probe)

	if *erase {
		if err := target.Detect(); err != nil {
			log.Fatal("no supported chip found: ", err)
		}

		if err := target.FlashMassErase(); err != nil {
			log.Fatal("mass erase failed: ", err)
		}

		log.Info("chip erased, recovering into debug mode")
	}

	if err := target.Startup(); err != nil {
		log.Fatal("bring-up failed: ", err)
	}

	log.Info("target is halted in debug mode")
}
