// Command tzctl is a small driver over the go-tz packages: it converts
// between instants and civil time under a zone, and formats/parses
// timestamps. It is not part of the library's API surface; its job is to
// exercise the library the way a real caller would.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ngrash/go-tz/strftime"
	"github.com/ngrash/go-tz/strptime"
	"github.com/ngrash/go-tz/tzreg"
	"github.com/ngrash/go-tz/tztime"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func initConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TZCTL")
	v.AutomaticEnv()
	v.SetDefault("zone", "UTC")
	v.SetDefault("layout", "%Y-%m-%dT%H:%M:%S%z")
	return v
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tzctl <breakdown|resolve> ...")
	}
	if lvl := os.Getenv("TZCTL_LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing TZCTL_LOG_LEVEL: %w", err)
		}
		logrus.SetLevel(parsed)
	}

	v := initConfig()
	switch args[0] {
	case "breakdown":
		return runBreakdown(v, args[1:])
	case "resolve":
		return runResolve(v, args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runBreakdown(v *viper.Viper, args []string) error {
	fs := flag.NewFlagSet("breakdown", flag.ContinueOnError)
	zoneFlag := fs.String("zone", v.GetString("zone"), "zone name")
	layoutFlag := fs.String("layout", v.GetString("layout"), "strftime layout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tzctl breakdown [-zone NAME] [-layout LAYOUT] <unix seconds>[.fraction]")
	}
	unix, nanos, err := parseInstant(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("parsing instant: %w", err)
	}

	h, ok := tzreg.Load(*zoneFlag)
	if !ok {
		logrus.WithField("zone", *zoneFlag).Warn("zone not found, using UTC")
	}

	b := tztime.Breakdown(h, unix, nanos)
	out, err := strftime.Format(*layoutFlag, b.Civil, strftime.Info{Offset: b.Offset, Abbrev: b.Abbrev, Nanos: b.Nanos})
	if err != nil {
		return err
	}
	fmt.Println(color.GreenString(out))
	return nil
}

func runResolve(v *viper.Viper, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	zoneFlag := fs.String("zone", v.GetString("zone"), "zone name")
	layoutFlag := fs.String("layout", v.GetString("layout"), "strptime layout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: tzctl resolve [-zone NAME] [-layout LAYOUT] <timestamp>")
	}

	h, ok := tzreg.Load(*zoneFlag)
	if !ok {
		logrus.WithField("zone", *zoneFlag).Warn("zone not found, using UTC")
	}

	r, err := strptime.Parse(*layoutFlag, fs.Arg(0))
	if err != nil {
		return err
	}
	unix := strptime.ResolveUnder(r, h)
	fmt.Println(color.GreenString(cast.ToString(unix)))
	return nil
}

// parseInstant parses "<seconds>" or "<seconds>.<fraction>" into a whole
// unix second plus a nanosecond residue, accepting a negative seconds part.
func parseInstant(s string) (int64, int32, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	unix, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if !hasFrac {
		return unix, 0, nil
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	n, err := strconv.ParseInt(frac, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fractional seconds %q", frac)
	}
	return unix, int32(n), nil
}
