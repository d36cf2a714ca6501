package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"vfdump/gba"
	"vfdump/save"
	"vfdump/util"
	"vfdump/util/env"
)

// include these GBA drivers:
import (
	_ "vfdump/gba/grpclink"
	_ "vfdump/gba/mock"
	_ "vfdump/gba/serial"
	_ "vfdump/gba/websocket"
)

var logPath string

// init is called first before all other package inits so it is best to set up log here:
func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)

	if util.IsTruthy(env.GetOrDefault("VFDUMP_LOG_DISABLE", "0")) {
		return
	}

	logFile, err := util.OpenLogFile(os.TempDir(), "vfdump")
	if err == nil {
		logPath = logFile.Name()
		log.SetOutput(util.NewPanicSafeLogger(logFile))
	} else {
		log.Printf("could not open log file for writing: %v\n", err)
	}
}

type config struct {
	driver string
	device string

	pollTimeout time.Duration
	blockDelay  time.Duration
	scratch     hexValue
	stats       bool

	// forces the save type of dump-save
	saveType string

	stdout io.Writer
}

// hexValue is a flag.Value for addresses.
type hexValue uint32

func (h *hexValue) String() string {
	return fmt.Sprintf("%#08x", uint32(*h))
}

func (h *hexValue) Set(s string) error {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return err
	}
	*h = hexValue(v)
	return nil
}

func newFlagSet(cfg *config) *flag.FlagSet {
	fs := flag.NewFlagSet("vfdump", flag.ContinueOnError)
	fs.StringVar(&cfg.driver, "driver", env.GetOrDefault("VFDUMP_DRIVER", "mock"), "cartridge driver: "+fmt.Sprint(gba.Drivers()))
	fs.StringVar(&cfg.device, "device", env.GetOrDefault("VFDUMP_DEVICE", ""), "driver specific device name")
	fs.DurationVar(&cfg.pollTimeout, "poll-timeout", env.DurationOrDefault("VFDUMP_POLL_TIMEOUT", save.DefaultPoller.Timeout), "give up on hardware that never signals completion after this long")
	fs.DurationVar(&cfg.blockDelay, "block-delay", env.DurationOrDefault("VFDUMP_BLOCK_DELAY", save.DefaultBlockDelay), "pause between EEPROM blocks")
	cfg.scratch = hexValue(env.Uint32OrDefault("VFDUMP_SCRATCH", gba.DefaultScratch))
	fs.Var(&cfg.scratch, "scratch", "IWRAM address used to stage EEPROM packets")
	fs.BoolVar(&cfg.stats, "stats", util.IsTruthy(env.GetOrDefault("VFDUMP_STATS", "0")), "print completion wait histograms")
	fs.StringVar(&cfg.saveType, "type", "", "skip detection and dump-save as this type (eeprom512, eeprom8k, sram32k, flash64k, flash128k)")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "usage: vfdump [flags] <command> [args]\n\ncommands:\n")
		for _, c := range commands {
			fmt.Fprintf(out, "  %-28s %s\n", c.usage, c.help)
		}
		fmt.Fprintf(out, "\nflags:\n")
		fs.PrintDefaults()
	}
	return fs
}

func main() {
	defer func() {
		if err := recover(); err != nil {
			util.LogPanic(err)
			os.Exit(3)
		}
	}()

	initConsole()
	if logPath != "" {
		log.Printf("logging to '%s'\n", logPath)
	}

	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one command line and returns the process exit status.
func run(args []string, stdout io.Writer) int {
	cfg := &config{stdout: stdout}
	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	c, ok := lookupCommand(fs.Arg(0))
	if !ok {
		log.Printf("unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	err := c.run(cfg, fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, save.ErrNoSave):
		fmt.Fprintln(stdout, "none")
		return 2
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	}
	log.Printf("%s: %v\n", c.name, err)
	return 1
}
