// Package daemon wires a sensor, a moving average and the publishers
// together for the root command.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	tsl2591 "github.com/JenswBE/golang-tsl2591"
	"github.com/mikesmitty/max31865"
	"github.com/mikesmitty/sht4x"
	"github.com/mikesmitty/swma/pkg/mqtt"
	"github.com/mikesmitty/swma/pkg/router"
	"github.com/mikesmitty/swma/pkg/sensor"
	"github.com/mikesmitty/swma/pkg/smoother"
	"github.com/mikesmitty/swma/pkg/watchdog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var ErrStale = errors.New("sensor stopped reporting")

func Root() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		cfg := ConfigFromViper(viper.GetViper())

		slogOpts := slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if cfg.Debug {
			slogOpts.Level = slog.LevelDebug
		}
		log := slog.New(slog.NewTextHandler(os.Stderr, &slogOpts))
		slog.SetDefault(log)

		errChk(cfg.Validate())
		errChk(Run(cfg))
	}
}

// Run polls the configured sensor until a signal arrives or a stage fails.
func Run(cfg Config) error {
	hostState, err := host.Init()
	if err != nil {
		return err
	}
	for i := range hostState.Loaded {
		slog.Debug("loaded", "module", hostState.Loaded[i])
	}
	for i := range hostState.Failed {
		slog.Error("failed", "module", hostState.Failed[i])
	}
	for i := range hostState.Skipped {
		slog.Debug("skipped", "module", hostState.Skipped[i])
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	readings, readFn, closeFn, err := openSensor(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	name := cases.Title(language.English).String(cfg.Metric)
	slog.Info("starting sensor", "sensor", cfg.Sensor, "metric", cfg.Metric, "interval", cfg.Interval, "window", cfg.Window)
	g.Go(readFn)
	rawFan := router.NewFan[float64]("raw", readings)
	rawFan.SetDebug(cfg.Debug)

	samples, smoothFn, err := smoother.New(name, cfg.Window, rawFan.Subscribe("smoother"))
	if err != nil {
		return err
	}
	smoothFan := router.NewFan[smoother.Sample]("smoothed", samples)
	smoothFan.SetDebug(cfg.Debug)

	// Watchdog
	if cfg.WatchdogTimeout > 0 {
		g.Go(watchdog.NewWatchdog(ctx, cfg.WatchdogTimeout, func() error {
			return fmt.Errorf("%s: %w", cfg.Sensor, ErrStale)
		}, rawFan.Subscribe("watchdog")))
	}

	// MQTT, or the log when no broker is configured
	if cfg.MQTTBroker != "" {
		mqttUrl, err := url.Parse(cfg.MQTTBroker)
		if err != nil {
			return fmt.Errorf("mqtt-broker: %w", err)
		}
		mc := mqtt.NewClient(mqttUrl, cfg.MQTTSampleInterval)
		if err := mc.Connect(); err != nil {
			return err
		}
		defer mc.Disconnect()
		g.Go(mc.GetPublisher(name, mqtt.HassSensorTypeFor(cfg.Metric), smoothFan.Subscribe("mqtt")))
		if err := mc.HomeAssistant(); err != nil {
			return err
		}
		// Publish/handle the publishing switch
		g.Go(mc.SwitchFn(ctx, "publish", mc.Resume, mc.Pause, mc.Publishing))
	} else {
		g.Go(LogSamples(name, cfg.MQTTSampleInterval, smoothFan.Subscribe("log")))
	}

	g.Go(rawFan.Run)
	g.Go(smoothFn)
	g.Go(smoothFan.Run)

	slog.Debug("waiting for goroutines to finish")
	err = g.Wait()
	slog.Info("shutting down...")
	return err
}

// LogSamples logs every rate-th sample at info level.
func LogSamples(name string, rate int, samples <-chan smoother.Sample) func() error {
	sampler := mqtt.NewSampler(rate)
	return func() error {
		for s := range samples {
			if !sampler.Ready() {
				continue
			}
			slog.Info("sample", "name", name, "raw", s.Raw, "average", s.Average, "stddev", s.StdDev, "slope", s.Slope, "spread", s.Spread, "count", s.Count, "filled", s.Filled)
		}
		return nil
	}
}

func openSensor(ctx context.Context, cfg Config) (<-chan float64, func() error, func(), error) {
	switch cfg.Sensor {
	case sensor.MAX31865:
		sb, err := spireg.Open(cfg.SPIBus)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("spi bus %q: %w", cfg.SPIBus, err)
		}
		dev, err := max31865.New(sb, nil)
		if err != nil {
			sb.Close()
			return nil, nil, nil, fmt.Errorf("%s: %w", cfg.Sensor, err)
		}
		c, fn := sensor.Max31865Channel(ctx, dev, cfg.Interval)
		return c, fn, func() { sb.Close() }, nil

	case sensor.SHT4x:
		ib, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("i2c bus %q: %w", cfg.I2CBus, err)
		}
		dev, err := sht4x.New(ib, nil)
		if err != nil {
			ib.Close()
			return nil, nil, nil, fmt.Errorf("%s: %w", cfg.Sensor, err)
		}
		c, fn := sensor.SHT4xChannel(ctx, dev, cfg.Metric, cfg.Interval)
		return c, fn, func() { ib.Close() }, nil

	case sensor.TSL2591:
		opts := &tsl2591.Opts{
			Bus:    cfg.I2CBus,
			Gain:   tsl2591.GainLow,
			Timing: tsl2591.IntegrationTime100MS,
		}
		dev, err := tsl2591.NewTSL2591(opts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", cfg.Sensor, err)
		}
		c, fn := sensor.TSL2591Channel(ctx, dev, cfg.Interval)
		return c, fn, func() {
			if err := dev.Disable(); err != nil {
				slog.Error("failed to disable sensor", "error", err, "module", sensor.TSL2591)
			}
		}, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: %q", sensor.ErrUnknownSensor, cfg.Sensor)
}

func errChk(err error) {
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
