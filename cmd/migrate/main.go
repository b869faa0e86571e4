package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/db"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	"github.com/angelmondragon/buildmart-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up              apply all pending migrations
  down            roll back the latest migration
  status          print applied and pending migrations
  to <version>    migrate up or down to a YYYYMMDDHHMMSS version
  create <name>   write an empty SQL migration
  validate        check filenames and goose markers
`

// offline commands never open a database connection.
var offline = map[string]func(dir, arg string) error{
	"create": func(dir, name string) error {
		if name == "" {
			return fmt.Errorf("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(dir, name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	},
	"validate": func(dir, _ string) error {
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	},
}

var online = map[string]func(ctx context.Context, runner *migrate.Runner, arg string) error{
	"up": func(ctx context.Context, runner *migrate.Runner, _ string) error {
		return runner.Up(ctx)
	},
	"down": func(ctx context.Context, runner *migrate.Runner, _ string) error {
		return runner.Down(ctx)
	},
	"status": func(ctx context.Context, runner *migrate.Runner, _ string) error {
		return runner.Status(ctx)
	},
	"to": func(ctx context.Context, runner *migrate.Runner, version string) error {
		if version == "" {
			return fmt.Errorf("to needs a target version")
		}
		return runner.To(ctx, version)
	},
}

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory; empty uses the embedded set for online commands")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command, arg := flag.Arg(0), flag.Arg(1)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	if run, ok := offline[command]; ok {
		if err := run(*dir, arg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
			os.Exit(1)
		}
		return
	}
	run, ok := online[command]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
		"dir":     *dir,
	})

	if err := runOnline(ctx, cfg, logg, *dir, func(runner *migrate.Runner) error {
		return run(ctx, runner, arg)
	}); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func runOnline(ctx context.Context, cfg *config.Config, logg *logger.Logger, dir string, fn func(*migrate.Runner) error) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return err
	}
	migrations, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, migrations, logg)
	if err != nil {
		return err
	}
	return fn(runner)
}
