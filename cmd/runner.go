package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plylist/internal/manager"
	"github.com/desertthunder/plylist/internal/platforms"
	"github.com/desertthunder/plylist/internal/shared"
	"github.com/desertthunder/plylist/internal/storage"
	"github.com/desertthunder/plylist/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The playlist library is opened on first use so commands like init can run before storage exists.
type Runner struct {
	config     *shared.Config
	configPath string
	manager    *manager.Manager
	engine     *tasks.Engine
	registry   *prometheus.Registry
	metrics    *platforms.Metrics
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Manager    *manager.Manager
	Registry   *prometheus.Registry
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		manager:    opts.Manager,
		registry:   opts.Registry,
		metrics:    platforms.NewMetrics(opts.Registry),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
	if r.manager != nil {
		r.engine = tasks.NewEngine(r.manager, tasks.EngineOpts{Logger: r.logger})
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, createCommand, listCommand, showCommand, deleteCommand,
		addTrackCommand, removeTrackCommand, moveTrackCommand, renameCommand, tagCommand, untagCommand,
		exportCommand, importCommand, duplicateCommand, mergeCommand, statsCommand, findCommand,
		diffCommand, syncAllCommand, exportAllCommand, historyCommand,
		appleMusicCommand, spotifyCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before applies the global flags. An explicit --config reloads the configuration from that path.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.ErrorLevel)
	}

	if !cmd.IsSet("config") {
		return ctx, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadOrDefault(path)
	if err != nil {
		return ctx, err
	}
	config.ApplyEnv()
	r.config = config
	r.configPath = path
	r.logger.Debug("loaded configuration", "path", path)
	return ctx, nil
}

// after releases the storage handle when one was opened.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.manager == nil {
		return nil
	}
	return r.manager.Close()
}

// open returns the playlist manager, creating the store and registering every configured
// platform on first use.
func (r *Runner) open() (*manager.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	store, err := storage.New(r.config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageUnavailable, err)
	}

	m := manager.New(store, manager.Options{Logger: r.logger, Metrics: r.metrics})
	r.registerPlatforms(m)

	r.manager = m
	r.engine = tasks.NewEngine(m, tasks.EngineOpts{Logger: r.logger})
	return m, nil
}

func (r *Runner) registerPlatforms(m *manager.Manager) {
	creds := r.config.Credentials

	if creds.AppleMusic.Configured() {
		token, err := platforms.DeveloperTokenFromFile(creds.AppleMusic.TeamID, creds.AppleMusic.KeyID, creds.AppleMusic.PrivateKeyPath)
		if err != nil {
			r.logger.Warn("apple music is configured but no developer token could be generated", "error", err)
		} else {
			m.RegisterPlatform(platforms.NewAppleMusic(platforms.AppleMusicOpts{
				DeveloperToken: token,
				UserToken:      creds.AppleMusic.UserToken,
				Storefront:     creds.AppleMusic.Storefront,
				Logger:         r.logger,
				Metrics:        r.metrics,
			}))
		}
	}

	if creds.Spotify.Configured() {
		m.RegisterPlatform(platforms.NewSpotify(platforms.SpotifyOpts{
			OAuth:   platforms.SpotifyOAuthConfig(creds.Spotify.ClientID, creds.Spotify.ClientSecret, creds.Spotify.RedirectURI),
			Token:   creds.Spotify.Token(),
			Logger:  r.logger,
			Metrics: r.metrics,
		}))
	}
}

// platform returns the named adapter after authenticating it.
//
// A refreshed Spotify token is written back to the config file.
func (r *Runner) platform(ctx context.Context, name string) (platforms.Platform, error) {
	m, err := r.open()
	if err != nil {
		return nil, err
	}
	p, err := m.Platform(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not configured", err, name)
	}
	if err := p.Authenticate(ctx); err != nil {
		return nil, err
	}

	if sp, ok := p.(*platforms.Spotify); ok {
		token, err := sp.Token()
		if err == nil && token.AccessToken != r.config.Credentials.Spotify.AccessToken {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warn("failed to persist refreshed spotify token", "error", err)
			}
		}
	}
	return p, nil
}

// saveTokens records token in the Spotify credentials and writes the config file when a path is known.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// confirm asks a yes/no question on the runner's input. Anything but y/yes is a no.
func (r *Runner) confirm(prompt string) bool {
	r.writePlain("%s (y/N): ", prompt)
	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
