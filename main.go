package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"pantilt-sentry/internal/actuator"
	"pantilt-sentry/internal/config"
	"pantilt-sentry/internal/device"
	"pantilt-sentry/internal/motion"
	"pantilt-sentry/internal/protocol"
	"pantilt-sentry/internal/transport"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	serverURL := flag.String("server", "", "websocket server URL (overrides config)")
	nodeName := flag.String("node", "", "node name announced in HELLO (overrides config)")
	mock := flag.Bool("mock", false, "use the mock actuator driver instead of GPIO servos")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Config %s not found, using defaults", *configPath)
			def := config.Default()
			cfg = &def
		} else {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *nodeName != "" {
		cfg.Node = *nodeName
	}
	if *mock {
		cfg.Servo.Mock = true
	}
	if cfg.Node == "" {
		cfg.Node = "sentry-" + uuid.NewString()[:8]
	}

	// Actuator driver
	var drv actuator.Driver
	if cfg.Servo.Mock {
		drv = actuator.NewMock()
	} else {
		sd, err := actuator.NewServoDriver(actuator.ServoConfig{
			PanPin:  cfg.Servo.PanPin,
			TiltPin: cfg.Servo.TiltPin,
		})
		if err != nil {
			log.Fatalf("Failed to open servo driver: %v", err)
		}
		drv = sd
	}
	defer drv.Close()

	client := transport.New(transport.Config{URL: cfg.Server.URL})

	dev := device.New(device.Config{
		Node:   cfg.Node,
		Driver: drv,
		Motion: motion.Config{
			Limits: protocol.Limits{
				PanMin:      cfg.Motion.PanMin,
				PanMax:      cfg.Motion.PanMax,
				TiltMin:     cfg.Motion.TiltMin,
				TiltMax:     cfg.Motion.TiltMax,
				TiltMinSafe: cfg.Motion.TiltMinSafe,
			},
			StepSize:       cfg.Motion.StepSize,
			TickInterval:   cfg.StepInterval(),
			CommandTimeout: cfg.CommandTimeout(),
			InitialPan:     cfg.Motion.InitialPan,
			InitialTilt:    cfg.Motion.InitialTilt,
		},
	}, client)
	client.OnConnect = dev.HandleConnect
	client.OnMessage = dev.HandleMessage

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("Pan/Tilt Sentry Node")
	log.Printf("  Node:   %s", cfg.Node)
	log.Printf("  Server: %s", cfg.Server.URL)
	if cfg.Servo.Mock {
		log.Printf("  Driver: mock")
	} else {
		log.Printf("  Driver: servo (pan=GPIO%d tilt=GPIO%d)", cfg.Servo.PanPin, cfg.Servo.TiltPin)
	}

	go dev.Run(ctx)

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Transport error: %v", err)
	}
}
