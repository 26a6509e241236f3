package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/irctrakz/adbcap/pkg/adb"
	"github.com/irctrakz/adbcap/pkg/config"
	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
	"github.com/irctrakz/adbcap/pkg/session"
)

// options holds the per-invocation settings that are not part of Config.
type options struct {
	list     bool
	device   string
	out      string
	format   string
	duration time.Duration
	stdout   io.Writer
}

func main() {
	configPath := flag.String("config", "", "config file (.yaml, .yml or .json)")
	list := flag.Bool("list", false, "list online devices and exit")
	device := flag.String("device", "", "device serial; defaults to the only online device")
	iface := flag.String("iface", "", "capture interface (default \"any\")")
	filter := flag.String("filter", "", "tcpdump filter clause, appended verbatim")
	out := flag.String("out", "", "local path for the retrieved capture")
	format := flag.String("format", "text", "event output format: text or json")
	duration := flag.Duration("duration", 0, "stop after this long; 0 captures until interrupted")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath, cfg); err != nil {
			logging.Fatalf("config: %v", err)
		}
	}
	config.LoadFromEnv(cfg)

	// Flags win over file and environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "iface":
			cfg.Capture.Interface = *iface
		case "filter":
			cfg.Capture.Filter = *filter
		}
	})

	if err := cfg.Validate(); err != nil {
		logging.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyLogging(); err != nil {
		logging.Fatalf("logging: %v", err)
	}
	if *format != "text" && *format != "json" {
		logging.Fatalf("unknown -format %q", *format)
	}

	logging.Debugf("Config: adb=%s interface=%s filter=%q remote=%s poll=%s",
		cfg.Bridge.Path, cfg.Capture.Interface, cfg.Capture.Filter,
		cfg.Capture.Remote.OrDefault().Path(), cfg.PollInterval())

	ctx, stop := interruptContext(context.Background())
	defer stop()

	err := run(ctx, cfg, options{
		list:     *list,
		device:   *device,
		out:      *out,
		format:   *format,
		duration: *duration,
		stdout:   os.Stdout,
	})
	if err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}

// run lists devices or performs one capture: start, wait for ctx or the
// duration, stop and retrieve.
func run(ctx context.Context, cfg *config.Config, opts options) error {
	rep := newReporter(opts.stdout, opts.format)

	events := logging.OpenEventLog(cfg.Capture.EventLog)
	defer events.Close()

	ctrl := session.NewController(
		adb.NewClient(cfg.AdbConfig()),
		session.WithPollInterval(cfg.PollInterval()),
		session.WithStopTimeout(cfg.StopTimeout()),
		session.WithAllowUnsafeFilter(cfg.Capture.AllowUnsafeFilter),
		session.WithListener(session.MultiListener(
			rep.event,
			func(e session.Event) { events.Printf("%s", e) },
		)),
	)

	devices, err := ctrl.ListDevices(ctx)
	if err != nil {
		return err
	}
	if opts.list {
		rep.devices(devices)
		return nil
	}

	id, err := pickDevice(devices, opts.device)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = defaultOutputPath(cfg.Capture.OutputDir, time.Now())
	}

	if _, err := ctrl.Start(ctx, id, cfg.CaptureSettings()); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case <-ctx.Done():
		logging.Infof("Interrupted, stopping capture")
	case <-deadline:
	}

	// Retrieval must outlive the interrupt that ended the capture.
	res, err := ctrl.Stop(context.Background(), out)
	if err != nil {
		return err
	}
	rep.result(res)
	return nil
}

// interruptContext is cancelled by the first SIGINT or SIGTERM. Default
// signal handling is restored right after, so a second interrupt during a
// slow retrieval terminates the process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}

// pickDevice returns want if it is online, or the only online device when
// want is empty.
func pickDevice(devices []core.DeviceID, want string) (core.DeviceID, error) {
	if want != "" {
		for _, d := range devices {
			if string(d) == want {
				return d, nil
			}
		}
		return "", fmt.Errorf("device %s is not online", want)
	}
	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no device online")
	case 1:
		return devices[0], nil
	default:
		ids := make([]string, len(devices))
		for i, d := range devices {
			ids[i] = string(d)
		}
		return "", fmt.Errorf("several devices online (%s), pick one with -device", strings.Join(ids, ", "))
	}
}
