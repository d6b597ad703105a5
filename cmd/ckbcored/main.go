package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ckbcored/internal/command"
	"ckbcored/internal/config"
	"ckbcored/internal/daemon"
	"ckbcored/internal/device"
	"ckbcored/internal/maintenance"
	"ckbcored/internal/notify"
	"ckbcored/internal/refdevice"
)

// These variables are set by the build script.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "ckbcored.json", "path to the daemon JSON config")
	deviceName := flag.String("device", "refdevice-0", "name of the demo device to attach")
	flag.Parse()

	log.Printf("Starting ckbcored version: %s, commit: %s, built: %s", version, commit, date)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	notifyReg := notify.NewRegistry()
	hub := notify.NewMonitorHub(cfg.Notify.AllowedOrigins)
	mux := http.NewServeMux()
	mux.HandleFunc("/monitor", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(notifyReg, w, r)
	})
	notifyServer := &http.Server{Addr: ":" + cfg.Notify.Port, Handler: mux}
	go func() {
		log.Printf("[Notify] monitor hub listening on :%s", cfg.Notify.Port)
		if err := notifyServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Notify] server error: %v", err)
		}
	}()

	telemetry := refdevice.NewTelemetry(cfg)
	macros := refdevice.NewMacroEngine(cfg.Macros.Dir)
	ref := refdevice.NewReference(telemetry, macros, notifyReg)

	if err := telemetry.Connect(); err != nil {
		log.Printf("[MQTT] setup error: %v", err)
	}

	disp := &command.Dispatcher{
		OutfifoMax: cfg.OutfifoMax,
		Notifier:   notifyReg,
		Transport:  ref.Transport,
	}

	var lost chan string = make(chan string, 1)
	registry := daemon.NewRegistry(disp, func(name string) {
		select {
		case lost <- name:
		default:
		}
	})

	pollRate, ok := device.PollRateByToken[cfg.Device.MaxPollRate]
	if !ok {
		log.Printf("[Config] unrecognized device.max_pollrate %q, defaulting to 1ms", cfg.Device.MaxPollRate)
		pollRate = device.PollRate1ms
	}
	d := device.NewDevice(*deviceName, device.WithMaxPollRate(pollRate), device.WithDebug(cfg.Device.Debug))
	d.SetVTable(ref)
	handle := registry.Attach(ctx, d)

	sched := maintenance.New()
	if err := sched.Probe(handle, cfg.Device.HeartbeatCron); err != nil {
		log.Printf("[Maintenance] failed to register heartbeat probe: %v", err)
	}
	sched.Start()

	go feedStdin(handle)

	log.Printf("ckbcored ready, device %q attached.", *deviceName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down...")
	case name := <-lost:
		log.Printf("Device %q lost, shutting down.", name)
	}

	sched.Stop()
	_ = notifyServer.Shutdown(context.Background())
	telemetry.Disconnect()
	cancel()
	log.Println("ckbcored shut down gracefully.")
}

// feedStdin lets an operator drive the attached demo device from the
// terminal, one protocol line per line of input — the simplest
// stand-in for a device's real input channel.
func feedStdin(h *daemon.Handle) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		h.Send(scanner.Text())
	}
}
