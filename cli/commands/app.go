package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/petal-labs/iris-messages/cli/config"
	"github.com/petal-labs/iris-messages/cli/keystore"
	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/messages"
)

// DefaultKeyName is the keystore entry used when a profile names none.
const DefaultKeyName = "anthropic"

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig  ConfigLoader
	newKeystore KeystoreFactory
	isTerminal  func(w io.Writer) bool
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer

	cfgFile    string
	envFile    string
	profile    string
	model      string
	baseURL    string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	dotenv map[string]string
	logger *slog.Logger

	streamPrompt    string
	streamSystem    string
	streamMaxTokens int
	streamTemp      float64
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithTerminalCheck overrides how the app decides whether stdout is a TTY.
func WithTerminalCheck(fn func(w io.Writer) bool) AppOption {
	return func(a *App) {
		if fn != nil {
			a.isTerminal = fn
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:  config.LoadConfig,
		newKeystore: keystore.NewKeystore,
		isTerminal:  isTerminal,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "iris-messages",
		Short: "Inspect and drive Messages API streams",
		Long: `iris-messages decodes Messages API event streams.

Use it to replay captured SSE transcripts offline, run live streaming
requests, and manage the API key it sends.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	// Global flags available to all commands.
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.iris-messages/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to read ANTHROPIC_* variables from (default .env if present)")
	root.PersistentFlags().StringVar(&a.profile, "profile", "", "config profile (default is default_profile)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model ID (e.g. claude-sonnet-4-5)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "API base URL")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newReplayCommand())
	root.AddCommand(a.newStreamCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command with the process arguments. An interrupt
// cancels the running request or replay.
func (a *App) Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return a.report(a.root.ExecuteContext(ctx))
}

// Run executes the app with explicit arguments.
func (a *App) Run(args ...string) error {
	a.root.SetArgs(args)
	return a.Execute()
}

func (a *App) initConfig() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}
	a.cfg = cfg

	if a.profile != "" {
		if _, ok := cfg.Profile(a.profile); !ok {
			return exitWithCode(ExitValidation, fmt.Errorf("profile %q is not defined in %s", a.profile, path))
		}
	}

	envFile, required := a.envFile, true
	if envFile == "" {
		envFile, required = ".env", false
	}
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		a.dotenv = dotenv
		a.logger.Debug("loaded env file", "path", envFile, "vars", len(dotenv))
	case !required && errors.Is(err, os.ErrNotExist):
		a.dotenv = map[string]string{}
	default:
		return exitWithCode(ExitValidation, fmt.Errorf("read env file %s: %w", envFile, err))
	}

	return nil
}

// activeProfile returns the selected profile, or a zero Profile.
func (a *App) activeProfile() config.Profile {
	if a.cfg == nil {
		return config.Profile{}
	}
	p, _ := a.cfg.Profile(a.profile)
	return p
}

// getenv prefers the process environment over the dotenv file.
func (a *App) getenv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return a.dotenv[key]
}

// resolveAPIKey looks for a key in the environment (including the dotenv
// file), then the keystore entry named by the profile, then the profile's
// inline key.
func (a *App) resolveAPIKey() (core.Secret, error) {
	if v := a.getenv(messages.DefaultAPIKeyEnvVar); v != "" {
		a.logger.Debug("using API key from environment")
		return core.NewSecret(v), nil
	}

	p := a.activeProfile()
	ref := p.APIKeyRef
	if ref == "" {
		ref = DefaultKeyName
	}

	ks, err := a.newKeystore()
	if err != nil {
		a.logger.Warn("keystore unavailable", "error", err)
	} else {
		key, err := ks.Get(ref)
		switch {
		case err == nil:
			a.logger.Debug("using API key from keystore", "name", ref)
			return key, nil
		case errors.Is(err, keystore.ErrNotFound):
		default:
			a.logger.Warn("keystore read failed", "name", ref, "error", err)
		}
	}

	if !p.APIKey.IsEmpty() {
		a.logger.Debug("using API key from config profile")
		return p.APIKey, nil
	}

	return core.Secret{}, exitWithCode(ExitValidation, fmt.Errorf(
		"no API key: set %s, run 'iris-messages keys set %s', or add api_key to the profile",
		messages.DefaultAPIKeyEnvVar, ref))
}

// newClient builds a Messages client from flags, profile and environment.
func (a *App) newClient() (*messages.Client, error) {
	key, err := a.resolveAPIKey()
	if err != nil {
		return nil, err
	}

	p := a.activeProfile()
	opts := []messages.Option{messages.WithLogger(a.logger)}

	baseURL := firstNonEmpty(a.baseURL, a.getenv(messages.BaseURLEnvVar), p.BaseURL)
	if baseURL != "" {
		opts = append(opts, messages.WithBaseURL(baseURL))
	}
	if p.Version != "" {
		opts = append(opts, messages.WithVersion(p.Version))
	}
	if p.Timeout > 0 {
		opts = append(opts, messages.WithTimeout(p.Timeout))
	}
	if p.MaxRetries > 0 {
		opts = append(opts, messages.WithRetryPolicy(core.NewRetryPolicy(core.RetryConfig{MaxRetries: p.MaxRetries})))
	}

	return messages.NewClient(key.Expose(), opts...), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var defaultApp = NewApp()

// Execute runs the default app root command.
func Execute() error {
	return defaultApp.Execute()
}
