package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/merchant-console/apiclient"
	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/jrsteele09/merchant-console/credentials/redisstore"
	"github.com/jrsteele09/merchant-console/internal/config"
	"github.com/jrsteele09/merchant-console/merchantapi"
	"github.com/jrsteele09/merchant-console/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

const sessionExpiredNotice = "session expired, log in again"

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs one command line; results go to stdout as JSON, logs and notices to stderr
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{cfg: config.New(), stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app is the object graph one invocation runs on
type app struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer

	logLevel    string
	apiURL      string
	showMetrics bool

	logger   zerolog.Logger
	store    credentials.Store
	client   *apiclient.Client
	api      *merchantapi.API
	session  *session.Manager
	registry *prometheus.Registry
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "merchantctl",
		Short:         "Merchant console for the stablecoin payment backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); defaults to LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Backend base URL including /api/v1; defaults to MERCHANT_API_URL")
	root.PersistentFlags().BoolVar(&a.showMetrics, "metrics", false, "Log request metrics when the command finishes")

	root.AddCommand(a.registerCmd())
	root.AddCommand(a.loginCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.whoamiCmd())
	root.AddCommand(a.rotateKeyCmd())
	root.AddCommand(a.deactivateCmd())
	root.AddCommand(a.paymentsCmd())
	root.AddCommand(a.walletsCmd())
	root.AddCommand(a.transactionsCmd())
	root.AddCommand(a.payoutsCmd())
	root.AddCommand(a.webhooksCmd())
	root.AddCommand(a.merchantCmd())

	return root
}

func (a *app) init(ctx context.Context) error {
	logger, err := newLogger(a.stderr, firstNonEmpty(a.logLevel, a.cfg.GetLogLevel()))
	if err != nil {
		return err
	}
	a.logger = logger

	a.store, err = newStore(a.cfg)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	metrics, err := apiclient.NewMetrics(a.registry)
	if err != nil {
		return fmt.Errorf("[merchantctl init] %w", err)
	}

	a.client, err = apiclient.New(firstNonEmpty(a.apiURL, a.cfg.GetAPIURL()), a.store,
		apiclient.WithLogger(a.logger),
		apiclient.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	a.api = merchantapi.New(a.client)

	a.session, err = session.New(a.api.Auth, a.store,
		session.WithTTL(a.cfg.GetCredentialTTL()),
		session.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	// the notice runs first so it still sees the session that is being dropped
	a.client.OnSessionInvalidated(func(context.Context) {
		if a.session.State() == session.Authenticated {
			fmt.Fprintln(a.stderr, sessionExpiredNotice)
		}
	})
	a.client.OnSessionInvalidated(a.session.Invalidate)

	if err := a.session.Start(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("stored session could not be resumed")
	}
	return nil
}

func (a *app) close() {
	if a.showMetrics {
		a.logMetrics()
	}
	if a.session != nil {
		a.session.Close()
	}
}

func (a *app) logMetrics() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Err(err).Msg("Failed to gather metrics")
		return
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			event := a.logger.Info().Str("metric", family.GetName())
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				event = event.Float64("value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				event = event.Uint64("count", m.GetHistogram().GetSampleCount()).
					Float64("sum", m.GetHistogram().GetSampleSum())
			}
			event.Msg("api metrics")
		}
	}
}

// requireSession fails unless the current invocation resumed or created a session
func (a *app) requireSession() error {
	if a.session.State() != session.Authenticated {
		return session.ErrNotAuthenticated
	}
	return nil
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("[merchantctl newLogger] invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(lvl).With().Timestamp().Logger(), nil
}

func newStore(cfg config.Config) (credentials.Store, error) {
	switch backend := cfg.GetCredentialBackend(); backend {
	case config.BackendMemory:
		return credentials.NewMemoryStore(), nil
	case config.BackendFile:
		return credentials.NewFileStore(cfg.GetCredentialFile()), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return redisstore.New(client, redisstore.WithKeyPrefix(cfg.GetRedisKeyPrefix())), nil
	default:
		return nil, fmt.Errorf("[merchantctl newStore] unknown credential backend %q", backend)
	}
}

func (a *app) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("[merchantctl print] %w", err)
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
