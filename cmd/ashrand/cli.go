package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Borislavv/go-ash-rand/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath    string
	envFiles      []string
	algorithm     string
	lanes         int
	lanesPerGroup int
	workers       int
	seed          uint64
	logLevel      string
}

// NewCLI builds the ashrand command tree.
func NewCLI() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "ashrand",
		Short:         "Generate reservoirs of uniform and normal samples on parallel lanes",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML session config")
	pf.StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files loaded before ASHRAND_* overrides")
	pf.StringVar(&flags.algorithm, "algorithm", "", "generator variant (xoshiro256+, pcg32)")
	pf.IntVar(&flags.lanes, "lanes", 0, "parallel lane count")
	pf.IntVar(&flags.lanesPerGroup, "lanes-per-group", 0, "thread-group width")
	pf.IntVar(&flags.workers, "workers", 0, "host seeding workers")
	pf.Uint64Var(&flags.seed, "seed", 0, "master seed (default: system entropy)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "library log level (debug, info, warn, error)")

	root.AddCommand(
		fillCmd(flags),
		streamCmd(flags),
		referenceCmd(flags),
		configCmd(flags),
	)
	return root
}

// session resolves the effective configuration: file or defaults, then dotenv and
// ASHRAND_* variables, then explicit flags.
func (f *rootFlags) session(cmd *cobra.Command) (*config.Session, error) {
	for _, file := range f.envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", file, err)
		}
	}

	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(f.configPath); err != nil {
			return nil, err
		}
	}
	config.ApplyEnv(cfg)

	pf := cmd.Flags()
	if pf.Changed("algorithm") {
		cfg.Algorithm = f.algorithm
	}
	if pf.Changed("lanes") {
		cfg.LaneCount = f.lanes
		if !pf.Changed("lanes-per-group") {
			cfg.LanesPerGroup = 0
		}
	}
	if pf.Changed("lanes-per-group") {
		cfg.LanesPerGroup = f.lanesPerGroup
	}
	if pf.Changed("workers") {
		cfg.HostWorkers = f.workers
	}
	if pf.Changed("seed") {
		seed := f.seed
		cfg.Seed = &seed
	}
	// Errors surface through cobra and the process exit code.
	cfg.FailFast = false
	cfg.AdjustConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *rootFlags) libraryLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func consoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}
