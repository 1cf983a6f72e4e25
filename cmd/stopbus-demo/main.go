// Command stopbus-demo fires the hello event on a bus holding the demo
// stops and logs the resulting call trace.
package main

import (
	"context"
	"log"
	"os"

	stopbus "github.com/lockp111/go-stopbus"
	"github.com/lockp111/go-stopbus/internal/config"
	"github.com/lockp111/go-stopbus/internal/demo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := cfg.Logger("stopbus-demo", os.Stderr)

	bus := stopbus.New(stopbus.WithName("demo"), stopbus.WithLogger(logger))
	bus.Register(&demo.Writer{W: os.Stdout}).
		Register(&demo.Printer{}).
		Register(&demo.Hello{Message: cfg.Message})

	_, trace, err := stopbus.Fire(context.Background(), bus, demo.HelloEvent, struct{}{})
	if cfg.ShowTrace {
		logger.Info("call trace:\n" + trace.Display())
	}
	if err != nil {
		if src := trace.Source(); src != nil {
			logger.Error("event failed", "source", src.Event, "error", src.Resolution.Err)
		}
		os.Exit(1)
	}
}
