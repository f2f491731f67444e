package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/engine"
	"github.com/wavelet-player/wavelet/internal/playback"
	"github.com/wavelet-player/wavelet/internal/player"
	"github.com/wavelet-player/wavelet/internal/remote"
	"github.com/wavelet-player/wavelet/internal/shared"
	"github.com/wavelet-player/wavelet/internal/syncer"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger, typically with a file logger while the
// TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, libraryCommand, playCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stack bundles the wired service graph behind one cleanup function.
type stack struct {
	store  *catalog.Store
	engine *engine.Engine
	close  func()
}

// buildStack opens the catalog database, the remote client and the engine facade.
// With withPlayer set it also launches the audio process and its controller loop.
func (r *Runner) buildStack(ctx context.Context, withPlayer bool) (*stack, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := catalog.NewStore(db)

	client, err := remote.NewHTTPClient(remote.HTTPClientOpts{
		Config: r.config,
		Logger: r.logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	var controller *playback.Controller
	var proc player.Process
	if withPlayer {
		proc, err = player.NewMPV(ctx, r.logger)
		if err != nil {
			db.Close()
			return nil, err
		}

		controller = playback.New(proc, client, playback.Options{
			StallTimeout: r.config.Player.StallTimeout(),
			Logger:       r.logger,
		})
		go controller.Run(ctx)

		if err := controller.SetVolume(r.config.Player.Volume); err != nil {
			r.logger.Warn("failed to set initial volume", "error", err)
		}
	}

	eng := engine.New(engine.Opts{
		Store:      store,
		Syncer:     syncer.NewEngine(store, client, r.logger),
		Controller: controller,
		Logger:     r.logger,
		Sync:       r.config.Sync,
		AutoSkip:   withPlayer,
	})
	if withPlayer {
		go eng.Run(ctx)
	}

	return &stack{
		store:  store,
		engine: eng,
		close: func() {
			if proc != nil {
				proc.Close()
			}
			db.Close()
		},
	}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
