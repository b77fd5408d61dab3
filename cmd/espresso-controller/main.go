// Command espresso-controller runs the 1 Hz boiler Control Loop, the
// Command Interface HTTP binding, and event publication for a
// single-boiler espresso machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/espresso-controller/internal/actuator"
	"github.com/sweeney/espresso-controller/internal/command"
	"github.com/sweeney/espresso-controller/internal/configstore"
	"github.com/sweeney/espresso-controller/internal/control"
	"github.com/sweeney/espresso-controller/internal/events"
	"github.com/sweeney/espresso-controller/internal/mode"
	"github.com/sweeney/espresso-controller/internal/sensor"
	"github.com/sweeney/espresso-controller/internal/telemetry"
	"github.com/sweeney/espresso-controller/internal/web"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "/var/lib/espresso-controller/config.json", "Configuration document path")
	telemetryPath := flag.String("telemetry", "/var/lib/espresso-controller/telemetry.jsonl", "Telemetry store path")
	driverPath := flag.String("sensor-driver", "/usr/local/bin/read-temperature", "Temperature sensor driver executable")
	pin := flag.Int("pin", actuator.DefaultPin, "BCM GPIO pin driving the heater SSR")
	broker := flag.String("broker", "", "MQTT broker address for event publication (empty disables the MQTT bridge)")
	httpAddr := flag.String("http", ":8080", "HTTP address for the Command Interface and status page (empty to disable)")
	printMode := flag.Bool("print-mode", false, "Print the current mode and exit")

	flag.Parse()

	if err := run(*configPath, *telemetryPath, *driverPath, *pin, *broker, *httpAddr, *printMode); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(configPath, telemetryPath, driverPath string, pin int, broker, httpAddr string, printMode bool) error {
	store, err := configstore.Open(configPath)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	if printMode {
		modes := mode.New(store, events.NewFakePublisher(), nil)
		snap := modes.Current()
		fmt.Printf("mode=%s target=%.1f machine_state=%s\n", snap.Mode, snap.Target, snap.MachineState)
		return nil
	}

	tel, err := telemetry.Open(telemetryPath)
	if err != nil {
		return fmt.Errorf("open telemetry store: %w", err)
	}
	defer tel.Close()

	sensorR := sensor.NewRealReader(driverPath, nil, sensor.ReadTimeout)

	act, err := actuator.NewRealActuator(pin, actuator.DefaultCarrierPeriod)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	defer act.Close()

	publisher, err := newPublisher(broker)
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}
	defer publisher.Close()

	modes := mode.New(store, publisher, nil)
	cmdIface := command.New(store, modes, tel)
	loop := control.New(sensorR, act, store, tel, publisher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		slog.Info("espresso-controller: received signal, shutting down", "signal", s)
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return loop.Run(gctx) })

	var srv *web.Server
	if httpAddr != "" {
		srv = web.New(httpAddr, cmdIface)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
		slog.Info("espresso-controller: http server listening", "addr", httpAddr)
	}

	slog.Info("espresso-controller: started", "config", configPath, "telemetry", telemetryPath, "pin", pin)

	return g.Wait()
}

// newPublisher wires the in-process event bus and, when a broker is
// configured, fans out to an MQTT bridge as well (spec.md §4.7:
// "publication ... an in-process channel fan-out plus an optional MQTT
// bridge").
func newPublisher(broker string) (events.Publisher, error) {
	bus := events.NewChannelBus()
	if broker == "" {
		return bus, nil
	}

	mqttPub, err := events.NewMQTTPublisher(broker)
	if err != nil {
		return nil, fmt.Errorf("connect mqtt broker %q: %w", broker, err)
	}
	return events.NewMultiPublisher(bus, mqttPub), nil
}
