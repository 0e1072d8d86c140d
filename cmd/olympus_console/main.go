package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/M-Chimiste/DCSOlympus/internal/config"
	"github.com/M-Chimiste/DCSOlympus/internal/console"
)

// set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("olympus_console", pflag.ContinueOnError)
	configDir := flags.String("config-dir", ".", "directory containing "+config.FileName)
	logLevel := flags.String("log-level", "", "override logLevel (debug, info, warn, error)")
	commandMode := flags.String("command-mode", "", `override commands.mode ("Game master", "Blue commander", "Red commander")`)
	interactive := flags.Bool("interactive", false, "read operator commands from stdin")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Printf("olympus_console %s (built %s)\n", Version, BuildDate)
		return nil
	}

	app, err := console.New(console.Options{
		ConfigDir:   *configDir,
		LogLevel:    *logLevel,
		CommandMode: *commandMode,
	})
	if err != nil {
		return err
	}
	app.Logger.Info("Starting olympus_console", "version", Version, "buildDate", BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *interactive {
		go func() {
			if err := readCommands(ctx, os.Stdin, os.Stdout, app); err != nil {
				app.Logger.Error("Operator input stopped", "error", err)
			}
		}()
	}

	runErr := app.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(runErr, app.Shutdown(shutdownCtx))
}
