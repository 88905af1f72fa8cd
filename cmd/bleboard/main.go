// Command bleboard turns this machine into a BLE keyboard for a
// previously paired peer device: scan for peers, connect, and deliver
// typed text as HID keyboard reports.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mferraro/bleboard/internal/ble"
	"github.com/mferraro/bleboard/internal/capture"
	"github.com/mferraro/bleboard/internal/config"
	"github.com/mferraro/bleboard/internal/keyboard"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: bleboard [-config path] <command>

commands:
  scan             discover nearby BLE devices
  type [text...]   connect and type the given text (stdin when omitted)
  relay            connect and forward local keystrokes until interrupted`)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bleboard/config.yaml)")
	address := flag.String("device", "", "peer device address (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	if *address != "" {
		cfg.Device.Address = *address
	}
	setupLogging(cfg.LogLevel)

	backend, err := selectBackend(cfg)
	if err != nil {
		log.Fatalf("bluetooth: %v", err)
	}

	kb := keyboard.New(backend, keyboard.Options{
		KeyInterval: cfg.KeyInterval(),
		Logf:        func(format string, args ...any) { log.Printf(format, args...) },
	})

	switch flag.Arg(0) {
	case "scan":
		err = runScan(kb, cfg)
	case "type":
		err = runType(kb, cfg, flag.Args()[1:])
	case "relay":
		err = runRelay(kb, cfg)
	default:
		usage()
	}

	if err != nil {
		log.Fatalf("error: %v", err)
	}
}

// loadConfig loads the config from the specified path, or falls back
// to the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	return config.Default(), nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func selectBackend(cfg *config.Config) (ble.Backend, error) {
	logf := func(format string, args ...any) { log.Printf(format, args...) }
	if cfg.Backend == "auto" {
		return ble.Probe(logf)
	}
	return ble.ProbeNamed(cfg.Backend, logf)
}

func runScan(kb *keyboard.Keyboard, cfg *config.Config) error {
	devices, err := kb.Scan(context.Background(), cfg.ScanTimeout())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no devices found")
		return nil
	}
	for _, dev := range devices {
		fmt.Printf("%-20s %s\n", dev.Address, dev.Name)
	}
	return nil
}

// connectConfigured connects to the device from flag/config, scanning
// first so the backend holds a live handle for the address.
func connectConfigured(kb *keyboard.Keyboard, cfg *config.Config) error {
	if cfg.Device.Address == "" {
		return fmt.Errorf("no device address configured (set device.address or pass -device)")
	}

	devices, err := kb.Scan(context.Background(), cfg.ScanTimeout())
	if err != nil {
		return err
	}

	target := ble.Device{Name: cfg.Device.Name, Address: cfg.Device.Address}
	for _, dev := range devices {
		if strings.EqualFold(dev.Address, cfg.Device.Address) {
			target = dev
			break
		}
	}

	return kb.Connect(context.Background(), target)
}

func runType(kb *keyboard.Keyboard, cfg *config.Config, args []string) error {
	if err := connectConfigured(kb, cfg); err != nil {
		return err
	}
	defer kb.Disconnect()

	if len(args) > 0 {
		return kb.SendText(strings.Join(args, " "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := kb.SendText(scanner.Text() + "\n"); err != nil {
			log.Printf("send: %v", err)
		}
	}
	return scanner.Err()
}

func runRelay(kb *keyboard.Keyboard, cfg *config.Config) error {
	if err := connectConfigured(kb, cfg); err != nil {
		return err
	}
	defer kb.Disconnect()

	listener := capture.NewListener()
	go listener.Start()
	defer listener.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Relaying local keystrokes. Ctrl+C to quit.")

	return relayKeys(kb, listener.Keys(), sigCh)
}

// keySender is the slice of keyboard.Keyboard the relay loop uses.
type keySender interface {
	SendCharacter(c rune) error
	SendBackspace() error
	SendEnter() error
	IsConnected() bool
}

// relayKeys pumps captured keystrokes into the sender until a signal
// arrives, the connection drops, or the capture stream closes.
func relayKeys(kb keySender, keys <-chan capture.Key, sigCh <-chan os.Signal) error {
	start := time.Now()
	var sent int
	for {
		select {
		case key, ok := <-keys:
			if !ok {
				log.Printf("Relayed %d keystrokes in %s", sent, time.Since(start).Round(time.Second))
				return fmt.Errorf("keystroke capture ended unexpectedly")
			}
			var err error
			switch key.Kind {
			case capture.KindEnter:
				err = kb.SendEnter()
			case capture.KindBackspace:
				err = kb.SendBackspace()
			default:
				err = kb.SendCharacter(key.Rune)
			}
			if err != nil {
				log.Printf("send: %v", err)
				if !kb.IsConnected() {
					return fmt.Errorf("connection lost after %s", time.Since(start).Round(time.Second))
				}
				continue
			}
			sent++

		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			log.Printf("Relayed %d keystrokes in %s", sent, time.Since(start).Round(time.Second))
			return nil
		}
	}
}
