// Command affixcore attaches to a running game process, installs the
// capture and skill-bypass hooks, and prints the currently arbitrated
// equipment base address at a fixed interval until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/xyproto/affixcore"
	"github.com/xyproto/affixcore/internal/winproc"
)

const versionString = "affixcore 1.0.0"

func main() {
	var (
		pidFlag     = flag.Uint("pid", 0, "target process ID (overrides -process)")
		processFlag = flag.String("process", "", "target process name, e.g. nioh3.exe (default from AFFIXCORE_TARGET_PROCESS or built-in)")
		noBypass    = flag.Bool("no-bypass", false, "do not patch the skill-gate branches")
		interval    = flag.Duration("interval", 500*time.Millisecond, "status poll interval")
		verbose     = flag.Bool("v", false, "verbose mode")
		version     = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		return
	}

	cfg := affixcore.ConfigFromEnv()
	if *processFlag != "" {
		cfg.TargetProcessName = *processFlag
	}
	if *verbose {
		cfg.Verbose = true
	}

	pid := uint32(*pidFlag)
	if pid == 0 {
		found, err := winproc.FindProcessByName(cfg.TargetProcessName)
		if err != nil {
			fail(err)
		}
		pid = found
	}

	c := affixcore.New(cfg)
	if err := c.Attach(pid); err != nil {
		fail(err)
	}
	defer c.Detach()

	if err := c.EnableCapture(); err != nil {
		fail(err)
	}
	if warning := c.LastError(); warning != "" {
		fmt.Fprintln(os.Stderr, affixcore.FormatError(fmt.Errorf("%s", warning), affixcore.StderrIsTerminal()))
	}

	if !*noBypass {
		if err := c.EnableSkillBypass(); err != nil {
			fmt.Fprintln(os.Stderr, affixcore.FormatError(err, affixcore.StderrIsTerminal()))
		}
	}

	fmt.Fprintf(os.Stderr, "attached to pid %s, watching (Ctrl+C to stop)\n", strconv.FormatUint(uint64(pid), 10))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nstopping")
			return
		case <-ticker.C:
			reportStatus(c)
		}
	}
}

func reportStatus(c *affixcore.Controller) {
	base, kind, err := c.CurrentBase()
	if err != nil {
		fmt.Printf("no capture yet: %v\n", err)
		return
	}
	fmt.Printf("base=%#x kind=%s\n", base, kind)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, affixcore.FormatError(err, affixcore.StderrIsTerminal()))
	os.Exit(1)
}
