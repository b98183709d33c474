/*Command ogscored is the daemon entrypoint: it loads the configuration
tree, hands off to the supervisor for the serial-address handshake, wires
the resulting drivers into a pair of axis.Controllers and a mount.
Coordinator, starts the read-only status HTTP surface, and watches the
config file for hot-reloadable soft parameters. The command-line shape
(bare invocation prints usage, subcommands for help/mkconf/conf/run)
follows cmd/multiserver's.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	yml "github.com/go-yaml/yaml"

	"github.com/openogs/ogscore/axis"
	"github.com/openogs/ogscore/axiskind"
	"github.com/openogs/ogscore/camera"
	"github.com/openogs/ogscore/comm"
	"github.com/openogs/ogscore/config"
	"github.com/openogs/ogscore/ephemeris"
	"github.com/openogs/ogscore/guider"
	"github.com/openogs/ogscore/mount"
	"github.com/openogs/ogscore/statushttp"
	"github.com/openogs/ogscore/supervisor"
	"github.com/openogs/ogscore/telemetry"
)

// Version is injected via ldflags at build time.
var Version = "dev"

// ConfigFileName is the default configuration path, overridable with the
// OGSCORED_CONFIG environment variable.
var ConfigFileName = "ogscored.yaml"

func init() {
	if v := os.Getenv("OGSCORED_CONFIG"); v != "" {
		ConfigFileName = v
	}
}

func root() {
	fmt.Println(`ogscored drives a two-axis optical ground station mount:
cascaded PID position/off-axis control per axis, pointing-model
correction, and a calibration sweep over a configured waypoint list.

Usage:
	ogscored <command>

Commands:
	run
	help
	mkconf
	conf
	version`)
}

func help() {
	fmt.Println(`ogscored is configured via a YAML file (default ogscored.yaml, override
with OGSCORED_CONFIG) plus OGSCORE_-prefixed environment variables, which
take precedence over the file. When no file is present, built-in defaults
are used. mkconf writes the built-in default configuration to that path;
an existing file there is overwritten.

Hardware topology (serial device list, per-axis serial address, soft
limits, axis_parameters) is read once at startup and never reloaded.
Gains, on-target thresholds, and poll/publish intervals may be changed by
editing the file while ogscored is running; they take effect on the next
write the filesystem watcher observes.`)
}

func mkconf() {
	t := config.Default()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(t); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	t, err := config.Load(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	if err := yml.NewEncoder(os.Stdout).Encode(t); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("ogscored version %v\n", Version)
}

// run wires the complete daemon and blocks until an interrupt or
// terminate signal is received.
func run() {
	logger := log.New(os.Stdout, "ogscored ", log.LstdFlags|log.Lmicroseconds)

	tree, err := config.Load(ConfigFileName)
	if err != nil {
		fatal(logger, "loading configuration", err)
	}

	az, el, problems, err := supervisor.BindAxes(tree.SerialDevices, tree.Azimuth.SerialAddress, tree.Elevation.SerialAddress)
	for _, p := range problems {
		logger.Printf("supervisor: %s", p)
	}
	if err != nil {
		fatal(logger, "binding axis drivers", err)
	}
	logger.Printf("azimuth bound to %s, elevation bound to %s", az.Device, el.Device)

	sink := buildTelemetrySink(logger, tree)
	ephemSource := ephemeris.Source(ephemeris.Fixed{})
	guideSource := guider.Source(guider.Disabled{})
	capturer := camera.Capturer(camera.Noop{})

	azCtrl := axis.New(tree.Azimuth.ToAxisConfig(axiskind.Azimuth), az.Client, ephemSource, guideSource, sink, logAdapter(logger, "az "))
	elCtrl := axis.New(tree.Elevation.ToAxisConfig(axiskind.Elevation), el.Client, ephemSource, guideSource, sink, logAdapter(logger, "el "))
	azCtrl.Start()
	elCtrl.Start()
	defer azCtrl.Stop()
	defer elCtrl.Stop()

	coordinator := mount.New(tree.Mount.ToMountConfig(), azCtrl, elCtrl, nil, ephemSource, guideSource, capturer, logAdapter(logger, "mount "))

	watcher, err := config.Watch(ConfigFileName, logAdapter(logger, "config "), func(soft config.SoftUpdate) {
		applySoftUpdate(azCtrl, elCtrl, soft)
	})
	if err != nil {
		logger.Printf("config: hot-reload watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	statusSrv := statushttp.New(coordinator)
	color.Green("ogscored listening for status requests on %s", tree.StatusHTTP.Addr)
	go func() {
		if err := http.ListenAndServe(tree.StatusHTTP.Addr, statusSrv); err != nil {
			logger.Fatalf("status http: %v", err)
		}
	}()

	waitForShutdown(logger)
}

// applySoftUpdate pushes a reloaded soft-parameter set into both axis
// controllers; hardware topology is untouched (config.ExtractSoft never
// carries it).
func applySoftUpdate(az, el *axis.Controller, soft config.SoftUpdate) {
	applyAxisSoftUpdate(az, soft.Azimuth)
	applyAxisSoftUpdate(el, soft.Elevation)
}

func applyAxisSoftUpdate(c *axis.Controller, soft config.AxisSoftUpdate) {
	full := config.AxisConfig{
		Controller:         soft.Controller,
		Thresholds:         soft.Thresholds,
		PollIntervalSec:    soft.PollIntervalSec,
		PublishIntervalSec: soft.PublishIntervalSec,
	}.ToAxisConfig(c.Kind())

	c.SetGains(full.InnerGains, full.OuterGains)
	c.SetThresholds(full.TrajectoryOnTargetDeg, full.OffAxisOnTargetDeg)
	if soft.PollIntervalSec > 0 {
		c.SetPollInterval(full.PollInterval)
	}
	if soft.PublishIntervalSec > 0 {
		c.SetPublishInterval(full.PublishInterval)
	}
}

// buildTelemetrySink opens a line-protocol TCP sink when the configuration
// names one. It returns nil, which the axis publish task skips, when no
// address is configured or the connection cannot be opened.
func buildTelemetrySink(logger *log.Logger, tree config.Tree) telemetry.Sink {
	if !tree.NeedsTelemetry() {
		logger.Print("telemetry: no addr configured, publication disabled")
		return nil
	}
	dev := comm.NewRemoteDevice(tree.Telemetry.Addr, false, nil, nil)
	if err := dev.Open(); err != nil {
		logger.Printf("telemetry: opening %s: %v; publication disabled", tree.Telemetry.Addr, err)
		return nil
	}
	return telemetry.NewLineProtocolSink(&dev)
}

func logAdapter(logger *log.Logger, prefix string) *log.Logger {
	return log.New(logger.Writer(), logger.Prefix()+prefix, logger.Flags())
}

func fatal(logger *log.Logger, stage string, err error) {
	color.Red("fatal: %s: %v", stage, err)
	logger.Fatalf("fatal: %s: %v", stage, err)
}

func waitForShutdown(logger *log.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	color.Yellow("ogscored received %v, shutting down", s)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
