//go:build !wails

// The default build has no window. It routes each argument the way the
// desktop shell would and prints the decision, which is handy for checking
// OS protocol registration from a terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"ergosum/internal/config"
	"ergosum/internal/deeplink"
	"ergosum/internal/logging"
	"ergosum/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ergosum", flag.ContinueOnError)
	fs.SetOutput(stderr)
	reveal := fs.Bool("reveal", false, "print navigation targets including tokens")
	showVersion := fs.Bool("version", false, "print build information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		info := version.Get()
		fmt.Fprintf(stdout, "ergosum %s (%s, %s, %s)\n", info.Version, info.Commit, info.GoVersion, info.Platform)
		return 0
	}

	s, err := config.NewLoader().Load()
	logger := logging.New(stderr, s.Log.Level, s.Log.Format)
	if err != nil {
		logger.Warn("config load failed, using defaults", "error", err)
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: ergosum [-reveal] <ergosum://link>...")
		return 2
	}

	status := 0
	for _, raw := range fs.Args() {
		if !deeplink.IsDeepLink(raw) {
			fmt.Fprintf(stdout, "%s\tnot a deep link\n", deeplink.Describe(raw))
			status = 1
			continue
		}
		decision := deeplink.Route(raw)
		target, ok := decision.Target()
		switch {
		case !ok:
			fmt.Fprintf(stdout, "%s\t%s\n", deeplink.Describe(raw), decision)
			status = 1
		case *reveal:
			fmt.Fprintf(stdout, "%s\t%s\t%s\n", deeplink.Describe(raw), decision, target)
		default:
			fmt.Fprintf(stdout, "%s\t%s\n", deeplink.Describe(raw), decision)
		}
	}
	return status
}
