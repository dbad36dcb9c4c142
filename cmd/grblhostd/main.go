// SPDX-License-Identifier: AGPL-3.0-or-later

// Command grblhostd wires a grbl.Controller, a telemetry.Recorder, and an
// httpapi.Server together behind a serial port and an HTTP listen
// address. CLI argument parsing and logging configuration are out of
// scope for the core (spec.md §1); this is the ambient entrypoint.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/eric02138/grblhost/grbl"
	"github.com/eric02138/grblhost/httpapi"
	"github.com/eric02138/grblhost/telemetry"
)

func main() {
	portName := flag.String("port", "COM3", "Serial port name")
	baud := flag.Int("baud", 115200, "Serial port baud rate")
	addr := flag.String("addr", ":9000", "HTTP listen address")
	threadingMode := flag.String("threading-mode", "Fast", "Threading preset: Slow, Quiet, Fast, UltraFast")
	initFile := flag.String("init-file", "", "Optional file of startup commands sent once on connect, one per line")
	trafficLogDir := flag.String("traffic-log-dir", "", "Optional directory to mirror serial traffic into session log files")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	logger := slog.Default()

	controller := grbl.New(logger)
	if err := controller.SetThreadingMode(*threadingMode); err != nil {
		logger.Error("invalid threading mode", "mode", *threadingMode, "err", err)
		os.Exit(1)
	}

	recorder := telemetry.NewRecorder(controller)
	controller.AddObserver(recorder)
	if *trafficLogDir != "" {
		recorder.EnableDiskJournal(*trafficLogDir)
		defer recorder.CloseDiskJournal()
	}

	if *initFile != "" {
		lines, err := grbl.LoadInitLines(*initFile)
		if err != nil {
			logger.Error("failed to load init file", "path", *initFile, "err", err)
			os.Exit(1)
		}
		controller.InitLines = lines
	}

	if err := controller.Connect(*portName, *baud); err != nil {
		logger.Error("initial connect failed, will keep HTTP API up for retry via /connect", "port", *portName, "baud", *baud, "err", err)
	}

	server := httpapi.New(controller, recorder, logger)

	logger.Info("HTTP server started", "addr", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("HTTP server error", "err", err)
	}
}
