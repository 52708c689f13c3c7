// Command heartbeat-node blinks a heartbeat LED, steps its speed on each button
// press and samples an ADC channel, reporting to MQTT, NATS and HTTP.
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

	"github.com/sweeney/heartbeat-node/internal/adc"
	"github.com/sweeney/heartbeat-node/internal/config"
	"github.com/sweeney/heartbeat-node/internal/gpio"
	"github.com/sweeney/heartbeat-node/internal/mqtt"
	"github.com/sweeney/heartbeat-node/internal/natsout"
	"github.com/sweeney/heartbeat-node/internal/report"
	"github.com/sweeney/heartbeat-node/internal/sched"
	"github.com/sweeney/heartbeat-node/internal/speed"
	"github.com/sweeney/heartbeat-node/internal/status"
	"github.com/sweeney/heartbeat-node/internal/tasks"
	"github.com/sweeney/heartbeat-node/internal/web"
)

// fakeSamples drive the "fake" ADC source on a bench without an ADC.
var fakeSamples = []uint16{0, 1024, 2048, 3072, 4095, 2048}

func main() {
	configPath := flag.String("config", "/etc/heartbeat-node/config.yaml", "Path to YAML config file (missing file uses defaults)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	natsURL := flag.String("nats", "", "NATS server URL (overrides config)")
	httpAddr := flag.String("http", "", `HTTP status address (overrides config, "off" disables)`)
	printState := flag.Bool("print-state", false, "Print button level and one ADC reading, then exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyFlags(cfg, *broker, *natsURL, *httpAddr)

	if *printState {
		if err := printHardwareState(cfg, os.Stdout); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags lets command-line flags override the loaded config.
func applyFlags(cfg *config.Config, broker, natsURL, httpAddr string) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if natsURL != "" {
		cfg.NATS.URL = natsURL
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
}

func run(cfg *config.Config) error {
	idx, err := speed.NewIndex(cfg.Heartbeat.InitialIndex)
	if err != nil {
		return fmt.Errorf("init speed: %w", err)
	}

	s := sched.New(time.Now())
	s.SetInputPoll(cfg.Scheduler.InputPoll)

	// Initialize hardware. Button edges wake the scheduler.
	hw, err := openHardware(cfg, s.Wake)
	if err != nil {
		return err
	}
	defer hw.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		DebounceMs:     cfg.Button.Debounce.Milliseconds(),
		SamplePeriodMs: cfg.Sampler.Period.Milliseconds(),
		ADCSource:      cfg.ADC.Source,
		Broker:         cfg.MQTT.Broker,
		NATSURL:        cfg.NATS.URL,
		HTTPAddr:       cfg.HTTP.Addr,
	}, idx, tasks.CycleDuration)

	sinks := []report.Reporter{report.LogSink{}, tracker}
	var links linkWatcher
	links.tracker = tracker

	// Initialize MQTT
	var publisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher = p
		links.mqtt = p
		sinks = append(sinks, mqtt.Sink{Publisher: p})
	}

	// Initialize NATS
	if cfg.NATS.URL != "" {
		nc, err := natsout.Connect(cfg.NATS.URL, cfg.MQTT.ClientID)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		np := natsout.NewPublisher(nc, cfg.NATS.Subject)
		defer func() {
			if err := np.Close(); err != nil {
				log.Printf("nats close: %v", err)
			}
		}()
		links.nats = np
		sinks = append(sinks, np)
	}

	relay := report.NewRelay(cfg.Report.Queue, sinks...)
	defer func() {
		relay.Close()
		if n := relay.Dropped(); n > 0 {
			log.Printf("report: %d events dropped", n)
		}
	}()

	links.refresh()
	publishSystem(publisher, tracker, "STARTUP", "")

	s.Spawn(tasks.NewHeartbeat(hw.led, idx, relay))
	s.Spawn(tasks.NewButton(hw.button, idx, relay, cfg.Button.Debounce))
	s.Spawn(tasks.NewSampler(hw.adc, cfg.Scale(), cfg.Sampler.Period, relay))
	tracker.SetTasks(s.States())
	s.OnStateChange(func(name string, st sched.State) {
		relay.Report(report.Event{
			Timestamp: s.Now(),
			Type:      report.EventTaskState,
			Task:      name,
			Detail:    string(st),
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go links.watch(ctx, time.Second)

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

	log.Printf("started: speed=x%d debounce=%v sample=%v adc=%s broker=%q nats=%q",
		idx.Multiplier(), cfg.Button.Debounce, cfg.Sampler.Period, cfg.ADC.Source, cfg.MQTT.Broker, cfg.NATS.URL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(s, publisher, &links, tracker, sigCh)
}

// runLoop drives the scheduler until a signal arrives or every task has
// ended, then publishes SHUTDOWN.
func runLoop(s *sched.Scheduler, publisher mqtt.Publisher, links *linkWatcher, tracker *status.Tracker, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reason := make(chan string, 1)
	go func() {
		select {
		case sg := <-sig:
			log.Printf("received %v, shutting down", sg)
			reason <- signalName(sg)
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler: %w", err)
	}

	why := "TASKS_ENDED"
	select {
	case why = <-reason:
	default:
		log.Printf("all tasks ended, shutting down")
	}

	if links != nil {
		links.refresh()
	}
	publishSystem(publisher, tracker, "SHUTDOWN", why)
	return nil
}

// publishSystem publishes a retained lifecycle event carrying a status
// snapshot. A nil publisher is a no-op.
func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	if publisher == nil {
		return
	}
	se := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		snap := tracker.Snapshot()
		se.Timestamp = snap.Now
		se.RawPayload = status.FormatStatusEvent(snap, event, reason)
	}
	if err := publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
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

// linkWatcher copies broker connection state into the tracker.
type linkWatcher struct {
	tracker *status.Tracker
	mqtt    mqtt.ConnectionStatus
	nats    mqtt.ConnectionStatus
}

func (l *linkWatcher) refresh() {
	if l.tracker == nil {
		return
	}
	if l.mqtt != nil {
		l.tracker.SetMQTTConnected(l.mqtt.IsConnected())
	}
	if l.nats != nil {
		l.tracker.SetNATSConnected(l.nats.IsConnected())
	}
}

func (l *linkWatcher) watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.refresh()
		}
	}
}

// hardware holds the open device handles.
type hardware struct {
	led    gpio.Output
	button gpio.Input
	adc    adc.Channel
}

func openHardware(cfg *config.Config, onEdge func()) (*hardware, error) {
	hw := &hardware{}

	led, err := gpio.NewRealOutput(cfg.GPIO.Chip, cfg.GPIO.LED)
	if err != nil {
		return nil, fmt.Errorf("init led: %w", err)
	}
	hw.led = led

	button, err := gpio.NewRealInput(cfg.GPIO.Chip, cfg.GPIO.Button, onEdge)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init button: %w", err)
	}
	hw.button = button

	ch, err := openADC(cfg.ADC)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("init adc: %w", err)
	}
	hw.adc = ch
	return hw, nil
}

// Close releases every opened handle. The LED is left low.
func (h *hardware) Close() {
	if h.adc != nil {
		if err := h.adc.Close(); err != nil {
			log.Printf("close adc: %v", err)
		}
	}
	if h.button != nil {
		if err := h.button.Close(); err != nil {
			log.Printf("close button: %v", err)
		}
	}
	if h.led != nil {
		if err := h.led.Close(); err != nil {
			log.Printf("close led: %v", err)
		}
	}
}

func openADC(c config.ADCConfig) (adc.Channel, error) {
	switch c.Source {
	case config.SourceSerial:
		ch, err := adc.NewSerialChannel(c.SerialPort, c.BaudRate)
		if err != nil {
			return nil, err
		}
		return ch, nil
	case config.SourceFake:
		return adc.NewFakeChannel(fakeSamples...), nil
	default:
		ch, err := adc.NewIIOChannel(c.IIODevice, c.IIOChannel)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// printHardwareState reads the button and the ADC once.
func printHardwareState(cfg *config.Config, w io.Writer) error {
	button, err := gpio.NewRealInput(cfg.GPIO.Chip, cfg.GPIO.Button, nil)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer button.Close()

	level, err := button.Read()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	ch, err := openADC(cfg.ADC)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer ch.Close()

	raw, err := ch.Read()
	if err != nil {
		return fmt.Errorf("read adc: %w", err)
	}

	fmt.Fprintln(w, formatState(level, raw, cfg.Scale()))
	return nil
}

func formatState(level gpio.Level, raw uint16, scale adc.Scale) string {
	button := "released"
	if level == gpio.Low {
		button = "pressed"
	}
	return fmt.Sprintf("Button: %s (%s), ADC: %d (%.1f mV)", level, button, raw, scale.Millivolts(raw))
}
