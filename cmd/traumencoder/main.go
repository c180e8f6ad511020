// traumencoder drives the worker engine from the command line, standing
// in for the graphical shell (out of scope for this module): it runs one
// scan to completion, printing each engine event as it arrives, then
// optionally encodes every ready item.
//
// Usage:
//
//	traumencoder [--config <path>] [--profile <name>] [--encode] <path>...
//
// Defaults: config="traumencoder.ini", profile="prores_422_hq".
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"traumencoder/engine"
)

func main() {
	configPath := flag.String("config", "traumencoder.ini", "INI config file")
	profile := flag.String("profile", "prores_422_hq", "encoding profile key")
	doEncode := flag.Bool("encode", false, "encode every ready item after scanning")
	logFile := flag.String("log-file", "", "optional log file path")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		log.Fatal("usage: traumencoder [flags] <path>...")
	}

	if err := run(paths, *configPath, *profile, *doEncode, *logFile); err != nil {
		log.Fatal(err)
	}
}

func run(paths []string, configPath, profile string, doEncode bool, logFile string) error {
	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := engine.DefaultLogConfig()
	logCfg.File = logFile
	logger := engine.SetupLogging(logCfg)

	proxy := engine.NewEngine(cfg, logger)

	proxy.ScanPaths(paths, engine.Framerates["fps_24"].Rate)

	scanDone := false
	for !scanDone {
		for {
			ev, ok := proxy.Poll()
			if !ok {
				break
			}
			scanDone = printEvent(ev) || scanDone
		}
		if !scanDone {
			time.Sleep(50 * time.Millisecond)
		}
	}

	if doEncode {
		proxy.EncodeItems(nil, profile, "")
		encodeDone := false
		for !encodeDone {
			for {
				ev, ok := proxy.Poll()
				if !ok {
					break
				}
				encodeDone = printEvent(ev) || encodeDone
			}
			if !encodeDone {
				time.Sleep(50 * time.Millisecond)
			}
		}
	}

	proxy.Join()
	return nil
}

// printEvent prints ev in a human-readable line and reports whether it
// was a terminal scan/encode event.
func printEvent(ev engine.Event) bool {
	switch ev.Kind {
	case engine.EventMediaUpdate:
		fmt.Fprintf(os.Stdout, "media_update %s %v\n", ev.ID, ev.Fields)
	case engine.EventMediaDelete:
		fmt.Fprintf(os.Stdout, "media_delete %s\n", ev.ID)
	case engine.EventScanUpdate:
		fmt.Fprintf(os.Stdout, "scan_update dirs=%d files=%d\n", ev.Dirs, ev.Files)
	case engine.EventScanComplete:
		fmt.Fprintln(os.Stdout, "scan_complete")
		return true
	case engine.EventScanCancelled:
		fmt.Fprintln(os.Stdout, "scan_cancelled")
		return true
	case engine.EventEncodeComplete:
		fmt.Fprintln(os.Stdout, "encode_complete")
		return true
	case engine.EventEncodeCancelled:
		fmt.Fprintln(os.Stdout, "encode_cancelled")
		return true
	}
	return false
}
