package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir DIR] <command> [arg]

commands:
  up                apply every pending migration
  down              roll back the newest migration
  status            list migrations and when they were applied
  to VERSION        move the schema to VERSION (YYYYMMDDHHMMSS)
  create NAME       write an empty migration file
  validate          lint migration files without a database
`

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command, arg := flag.Arg(0), flag.Arg(1)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	// create and validate work on files only, so they skip config and the database.
	switch command {
	case "create":
		if arg == "" {
			exitf("create needs a NAME")
		}
		path, err := migrate.CreateSQLMigration(*dir, arg)
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println(path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("%s is invalid:\n%v", *dir, err)
		}
		fmt.Println(*dir, "ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		exitf("load config: %v", err)
	}
	if cfg.DB.Driver == config.DriverSQLite {
		exitf("goose migrations target postgres; sqlite schemas are built from the models at boot")
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
		"dir":     *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "sql handle unavailable", err)
		os.Exit(1)
	}

	var lines []string
	switch command {
	case migrate.CmdUp, migrate.CmdDown, migrate.CmdStatus:
		lines, err = migrate.Run(ctx, sqlDB, *dir, command)
	case "to":
		if arg == "" {
			exitf("to needs a VERSION")
		}
		lines, err = migrate.MigrateToVersion(ctx, sqlDB, *dir, arg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if len(lines) > 0 {
		fmt.Println(strings.Join(lines, "\n"))
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "migrations", len(lines)), "migrate finished")
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
