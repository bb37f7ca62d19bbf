// Command console runs an ordering bot in the terminal. Every line read from stdin is a message
// activity of a single conversation.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/memory"
	mprom "github.com/cschleiden/go-dialogflow/backend/metrics/prometheus"
	"github.com/cschleiden/go-dialogflow/backend/redis"
	"github.com/cschleiden/go-dialogflow/backend/sqlite"
	"github.com/cschleiden/go-dialogflow/client"
	"github.com/cschleiden/go-dialogflow/diag"
	"github.com/cschleiden/go-dialogflow/dialog"
	"github.com/cschleiden/go-dialogflow/dialog/prompts"
	"github.com/cschleiden/go-dialogflow/worker"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type config struct {
	Backend        string
	SqlitePath     string
	RedisAddr      string
	RedisPassword  string
	Shop           string
	Trace          bool
	OTLPEndpoint   string
	HTTPAddr       string
	IdleExpiration time.Duration
	LogLevel       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive ordering bot running in the terminal",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfig(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config{
				Backend:        v.GetString("backend"),
				SqlitePath:     v.GetString("sqlite-path"),
				RedisAddr:      v.GetString("redis-addr"),
				RedisPassword:  v.GetString("redis-password"),
				Shop:           v.GetString("shop"),
				Trace:          v.GetBool("trace"),
				OTLPEndpoint:   v.GetString("otlp-endpoint"),
				HTTPAddr:       v.GetString("http-addr"),
				IdleExpiration: v.GetDuration("idle-expiration"),
				LogLevel:       v.GetString("log-level"),
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			return run(ctx, cfg)
		},
	}

	cmd.Flags().String("config-file", "console.yaml", "config file")
	cmd.Flags().String("backend", "memory", "backend to use: memory, sqlite, redis")
	cmd.Flags().String("sqlite-path", "console.sqlite", "sqlite database file")
	cmd.Flags().String("redis-addr", "localhost:6379", "redis address")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("shop", "Luigi's", "name of the shop")
	cmd.Flags().Bool("trace", false, "print spans to stdout")
	cmd.Flags().String("otlp-endpoint", "", "export spans via OTLP/HTTP to this endpoint")
	cmd.Flags().String("http-addr", "", "serve diagnostics and metrics on this address")
	cmd.Flags().Duration("idle-expiration", 0, "remove conversations idle for longer than this")
	cmd.Flags().String("log-level", "warn", "log level: debug, info, warn, error")

	return cmd
}

func readConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	v.SetEnvPrefix("dialogflow")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(v.GetString("config-file"))
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}

func run(ctx context.Context, cfg config) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()

	bopts := []backend.BackendOption{
		backend.WithLogger(logger),
		backend.WithMetrics(mprom.NewClient(reg)),
	}

	if cfg.Trace || cfg.OTLPEndpoint != "" {
		tp, err := newTracerProvider(ctx, cfg)
		if err != nil {
			return err
		}
		defer tp.Shutdown(context.Background())

		bopts = append(bopts, backend.WithTracerProvider(tp))
	}

	b, err := newBackend(cfg, bopts)
	if err != nil {
		return err
	}
	defer b.Close()

	w := worker.New(b, &worker.Options{
		RootDialog:        "order",
		RootDialogOptions: OrderOptions{Shop: cfg.Shop},
		StateCacheSize:    worker.DefaultOptions.StateCacheSize,
		StateCacheTTL:     worker.DefaultOptions.StateCacheTTL,
	})

	if err := w.RegisterDialog(prompts.NewTextPrompt("item")); err != nil {
		return err
	}

	if err := w.RegisterDialog(prompts.NewConfirmPrompt("confirm")); err != nil {
		return err
	}

	if err := worker.RegisterWorkflow(w, "order", OrderWorkflow); err != nil {
		return err
	}

	if err := w.Start(ctx); err != nil {
		return err
	}

	c := client.New(b)

	if cfg.IdleExpiration > 0 {
		go func() {
			if err := c.RunAutoExpiration(ctx, cfg.IdleExpiration, cfg.IdleExpiration/2); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("running auto expiration", "error", err)
			}
		}()
	}

	if cfg.HTTPAddr != "" {
		srv := newHTTPServer(cfg.HTTPAddr, b, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("serving http", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	conversationID := uuid.NewString()
	adapter := &consoleAdapter{}

	fmt.Println("Say something to start. Ctrl+D to quit.")

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return w.WaitForCompletion()

		case line, ok := <-lines:
			if !ok {
				stats, err := c.GetStats(context.Background())
				if err == nil {
					logger.Info("conversations", "total", stats.Conversations, "active", stats.ActiveConversations)
				}

				return w.WaitForCompletion()
			}

			a := dialog.MessageActivity(line)
			a.ID = uuid.NewString()
			a.Timestamp = time.Now().UTC()
			a.ChannelID = "console"
			a.ConversationID = conversationID
			a.From = dialog.ChannelAccount{ID: "user"}
			a.Recipient = dialog.ChannelAccount{ID: "bot"}

			if _, err := w.ProcessActivity(ctx, a, adapter); err != nil {
				logger.Error("processing activity", "error", err)
				fmt.Println("bot> Something went wrong, please try again.")
			}
		}
	}
}

func newBackend(cfg config, opts []backend.BackendOption) (backend.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewMemoryBackend(opts...), nil

	case "sqlite":
		return sqlite.NewSqliteBackend(cfg.SqlitePath, sqlite.WithBackendOptions(opts...)), nil

	case "redis":
		rc := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:        []string{cfg.RedisAddr},
			Password:     cfg.RedisPassword,
			WriteTimeout: time.Second * 30,
			ReadTimeout:  time.Second * 30,
		})

		return redis.NewRedisBackend(rc, redis.WithBackendOptions(opts...))

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newHTTPServer(addr string, b backend.Backend, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	if db, ok := b.(diag.Backend); ok {
		mux.Handle("/diag/", http.StripPrefix("/diag", diag.NewServeMux(db)))
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newTracerProvider(ctx context.Context, cfg config) (*sdktrace.TracerProvider, error) {
	r := resource.NewSchemaless(
		attribute.String("service.name", "dialogflow-console"),
		attribute.String("environment", "sample"),
	)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(r)}

	if cfg.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithSyncer(exp))
	}

	if cfg.OTLPEndpoint != "" {
		oclient := otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
		exp, err := otlptrace.New(ctx, oclient)
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}

		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

type consoleAdapter struct{}

func (consoleAdapter) SendActivity(_ context.Context, a *dialog.Activity) (*dialog.ResourceResponse, error) {
	fmt.Println("bot>", a.Text)

	return &dialog.ResourceResponse{ID: uuid.NewString()}, nil
}
