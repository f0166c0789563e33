// Command gate-controller drives a swing gate from a single push button and
// publishes its state to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gate-controller/internal/actuator"
	"github.com/sweeney/gate-controller/internal/button"
	"github.com/sweeney/gate-controller/internal/clock"
	"github.com/sweeney/gate-controller/internal/config"
	"github.com/sweeney/gate-controller/internal/console"
	"github.com/sweeney/gate-controller/internal/gate"
	"github.com/sweeney/gate-controller/internal/logic"
	"github.com/sweeney/gate-controller/internal/mqtt"
	"github.com/sweeney/gate-controller/internal/nvs"
	"github.com/sweeney/gate-controller/internal/status"
	"github.com/sweeney/gate-controller/internal/web"
)

// exitControlledReset is the exit status after a controlled reset the
// watchdog did not carry out; the service manager restarts the daemon.
const exitControlledReset = 3

func main() {
	configPath := flag.String("config", "", "YAML configuration file (empty for defaults)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config)")
	heartbeat := flag.Duration("heartbeat", -1, "Heartbeat interval, 0 to disable (overrides config)")
	printState := flag.Bool("print-state", false, "Print the stored gate state and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(&cfg, *broker, *httpAddr, *heartbeat)
	if err := config.Validate(&cfg); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		if errors.Is(err, gate.ErrControlledReset) {
			log.Printf("controlled reset: %v", err)
			os.Exit(exitControlledReset)
		}
		log.Fatalf("fatal: %v", err)
	}
}

// applyOverrides layers command-line flags over the file configuration.
// Empty strings and a negative heartbeat leave the file value.
func applyOverrides(cfg *config.Config, broker, httpAddr string, heartbeat time.Duration) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if heartbeat >= 0 {
		cfg.HeartbeatMs = heartbeat.Milliseconds()
	}
}

func run(cfg config.Config, printState bool) (err error) {
	timing := cfg.GateTiming()

	// Non-volatile store
	dev, err := openNVS(cfg.NVS)
	if err != nil {
		return fmt.Errorf("init nvs: %w", err)
	}
	store := nvs.NewStore(dev)
	defer store.Close()

	// Print state mode
	if printState {
		return printStored(os.Stdout, store)
	}

	// Console: stderr always, serial line when configured
	sinks := []io.Writer{os.Stderr}
	if cfg.Serial.Device != "" {
		port, err := console.Open(cfg.Serial.Device)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		defer port.Close()
		sinks = append(sinks, port)
	}
	logger := console.New(sinks...)

	// Outputs
	out, err := openOutputs(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer out.Close()

	// Watchdog. After a committed controlled reset the device is left armed
	// so it resets the board.
	wdt, cause, err := openWatchdog(cfg.Watchdog)
	if err != nil {
		return fmt.Errorf("init watchdog: %w", err)
	}
	defer func() {
		if errors.Is(err, gate.ErrControlledReset) {
			return
		}
		if cerr := wdt.Close(); cerr != nil {
			log.Printf("watchdog: %v", cerr)
		}
	}()

	// Controller. Notify runs under the controller lock, so events are handed
	// to the main loop without blocking.
	events := make(chan logic.Event, 16)
	resets := make(chan gate.ResetPhase, 4)
	clk := clock.Real{}
	ctrl := gate.New(gate.Config{
		Clock:    clk,
		Bridge:   actuator.New(out, clk, timing.RelaySwitching),
		Store:    store,
		Watchdog: wdt,
		Console:  logger,
		Timing:   timing,
		Notify: func(e logic.Event) {
			select {
			case events <- e:
			default:
				log.Printf("event queue full, dropping %s", e.Type)
			}
		},
		OnReset: func(p gate.ResetPhase) {
			select {
			case resets <- p:
			default:
			}
		},
	})

	// Button
	src := button.NewSource(clk, wdt, timing, ctrl)
	btn, err := openButton(cfg.GPIO, src.Edge)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer btn.Close()
	src.Attach(btn)

	if err := ctrl.Boot(cause); err != nil {
		return err
	}

	// MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var connection mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		publisher, connection = p, p
	}
	defer publisher.Close()

	// Status tracker (before STARTUP so the snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	snap := ctrl.Snapshot()
	tracker.SetBoot(snap.BootCause.String(), snap.Recovered)
	tracker.Update(snap.Report())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if err := src.Run(ctx); err != nil {
			log.Printf("button: %v", err)
		}
	}()
	go func() {
		done <- ctrl.Run(ctx)
	}()

	d := loopDeps{
		ctrl:      ctrl,
		publisher: publisher,
		conn:      connection,
		tracker:   tracker,
		events:    events,
		resets:    resets,
		done:      done,
		stop:      cancel,
		now:       time.Now,
	}
	d.publishSystem(mqtt.EventStartup, "")

	log.Printf("started: gate=%s broker=%q heartbeat=%v travel=%v",
		snap.State, cfg.MQTT.Broker, cfg.Heartbeat(), timing.GateOperation)

	var tick <-chan time.Time
	if hb := cfg.Heartbeat(); hb > 0 {
		ticker := time.NewTicker(hb)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(d, tick, sigCh)
}

// controller is the part of gate.Controller the main loop uses.
type controller interface {
	Snapshot() gate.Snapshot
	Shutdown()
}

type loopDeps struct {
	ctrl      controller
	publisher mqtt.Publisher
	conn      mqtt.ConnectionStatus
	tracker   *status.Tracker
	events    <-chan logic.Event
	resets    <-chan gate.ResetPhase
	// done delivers the controller's Run result; stop cancels it.
	done <-chan error
	stop func()
	now  func() time.Time
}

func runLoop(d loopDeps, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.stop()
			err := <-d.done
			d.ctrl.Shutdown()
			d.drain()
			d.publishSystem(mqtt.EventShutdown, signalName(s))
			return err

		case err := <-d.done:
			// The controller only stops on its own after a controlled reset
			// the watchdog did not carry out.
			d.drain()
			return err

		case e := <-d.events:
			d.handleEvent(e)

		case p := <-d.resets:
			d.handleReset(p)

		case <-tick:
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			d.refresh()
			snap := d.ctrl.Snapshot()
			log.Printf("heartbeat: gate=%s idle=%v presses=%d interrupts=%d opened=%d closed=%d",
				snap.State, snap.IdleFor.Truncate(time.Second), snap.Counts.Presses,
				snap.Counts.Interrupts, snap.Counts.Opened, snap.Counts.Closed)
			d.publishSystem(mqtt.EventHeartbeat, "")
		}
	}
}

func (d loopDeps) handleEvent(e logic.Event) {
	log.Printf("event: %s (from %s, %s)", e.Type, e.From, e.Cause)
	if err := d.publisher.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
	d.refresh()
}

// drain publishes events and reset phases queued before the controller
// stopped.
func (d loopDeps) drain() {
	for {
		select {
		case e := <-d.events:
			d.handleEvent(e)
		case p := <-d.resets:
			d.handleReset(p)
		default:
			return
		}
	}
}

func (d loopDeps) handleReset(p gate.ResetPhase) {
	log.Printf("reset: %s", p)
	d.refresh()
	d.publishSystem(string(p), "")
}

// refresh updates the tracker for HTTP and heartbeat consumers.
func (d loopDeps) refresh() {
	d.tracker.Update(d.ctrl.Snapshot().Report())
	if d.conn != nil {
		d.tracker.SetMQTTConnected(d.conn.IsConnected())
	}
}

// publishSystem sends a system event carrying a full status snapshot.
// Heartbeats are not retained.
func (d loopDeps) publishSystem(event, reason string) {
	if d.conn != nil {
		d.tracker.SetMQTTConnected(d.conn.IsConnected())
	}
	snap := d.tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   event != mqtt.EventHeartbeat,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func statusConfig(cfg config.Config) status.Config {
	t := cfg.GateTiming()
	return status.Config{
		GateOperationMs: t.GateOperation.Milliseconds(),
		DeadTimeMs:      t.RelaySwitching.Milliseconds(),
		DebounceMs:      t.ButtonDebounce.Milliseconds(),
		RegularResetMs:  t.RegularReset.Milliseconds(),
		HeartbeatMs:     cfg.HeartbeatMs,
		Driver:          cfg.GPIO.Driver,
		Broker:          cfg.MQTT.Broker,
		HTTPAddr:        cfg.HTTP.Addr,
	}
}

func printStored(w io.Writer, store *nvs.Store) error {
	state, err := store.ReadState()
	if err != nil && !errors.Is(err, nvs.ErrUnknownState) {
		return fmt.Errorf("read nvs: %w", err)
	}
	raw, crumb, rerr := store.Raw()
	if rerr != nil {
		return fmt.Errorf("read nvs: %w", rerr)
	}
	note := ""
	if err != nil {
		note = " (unreadable, assuming closed)"
	} else if d, _ := logic.Decode(raw); d != state {
		note = fmt.Sprintf(" (stored %s)", d)
	}
	fmt.Fprintf(w, "Gate: %s%s, raw=0x%02x, reset breadcrumb=0x%02x\n", state, note, raw, crumb)
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
