// Command migrate applies the embedded brandhub schema.
//
//	migrate [up|down|version]
//
// The target database is read from BRANDHUB_DATABASE_URL.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"brandhub/cmd/internal/db"

	"github.com/caarlos0/env/v11"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("migrate.fail", "err", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|version]")
	}
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BRANDHUB_"}); err != nil {
		return err
	}

	if direction == "version" {
		v, dirty, err := db.Version(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		slog.Info("migrate.version", "version", v, "dirty", dirty)
		return nil
	}

	if err := db.Migrate(cfg.DatabaseURL, direction); err != nil {
		return err
	}
	slog.Info("migrate.done", "direction", direction)
	return nil
}
