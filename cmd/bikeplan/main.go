// README: Terminal front end; plans one trip from args or a stdin line and prints it.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bikeplan/internal/app"
	"bikeplan/internal/config"
	"bikeplan/internal/logger"
	"bikeplan/internal/service"
	"bikeplan/internal/trip"
)

const example = "Saldré a pedalear el 8 de febrero a las 8:00 desde Osorno, pasando por San Pablo y La Unión, hasta Valdivia."

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// Keep the terminal for the plan; only warnings and up go to stderr.
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()

	query := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if query == "" {
		fmt.Fprintf(os.Stderr, "Ingresa tu ruta (ej: %s)\n> ", example)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		query = strings.TrimSpace(line)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	planner, cleanup, err := app.NewPlanner(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Failed to initialize planner: %v", err)
	}
	defer cleanup()

	s, err := planner.Plan(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, service.UserMessage(err))
		cleanup()
		zl.Sync()
		if trip.IsRecoverable(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
	fmt.Print(service.RenderText(s))
}
