package jetway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jetwayhq/jetway/pkg/adapters/image"
	"github.com/jetwayhq/jetway/pkg/adapters/speech"
	"github.com/jetwayhq/jetway/pkg/configutil"
	"github.com/jetwayhq/jetway/pkg/logging"
	"github.com/jetwayhq/jetway/pkg/metrics"
	"github.com/jetwayhq/jetway/pkg/observers"
	"github.com/jetwayhq/jetway/pkg/redact"
	"github.com/jetwayhq/jetway/pkg/runner"
	"github.com/jetwayhq/jetway/pkg/tools"
	"github.com/jetwayhq/jetway/pkg/transports"
	mocktransport "github.com/jetwayhq/jetway/pkg/transports/mock"
	"github.com/jetwayhq/jetway/pkg/transports/ws"
	"github.com/jetwayhq/jetway/pkg/turn"
)

// Engine assembles the conversation stack from config: observers, the
// decorated chat provider, optional artifact vendors, the turn controller,
// and the transport that feeds it.
type Engine struct {
	cfg        Config
	providers  *ProviderRegistry
	transport  transports.Transport
	controller *turn.Controller
	runner     *runner.LifecycleRunner
	asyncObs   *metrics.AsyncObserver
	ctx        context.Context
	cancel     context.CancelFunc
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Tools     *tools.Registry
	// Transport overrides config-driven transport construction. Tests run
	// the engine against the in-memory transport this way.
	Transport transports.Transport
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("jetway_init",
		"environment", cfg.Environment,
		"llm_provider", cfg.Vendors.LLM.Provider,
		"image_provider", cfg.Vendors.Image.Provider,
		"speech_provider", cfg.Vendors.Speech.Provider,
		"transport", cfg.Transports.Provider,
	)

	latencyObs := observers.NewLatencyObserver(slog.Default())
	logObs := observers.NewLoggerObserver(slog.Default())
	var timelineObs *observers.TimelineObserver
	var costObs *observers.CostObserver
	var metricsFile *os.File
	obsList := []metrics.Observer{latencyObs, logObs}
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			maxAge := time.Duration(cfg.Observability.RetentionDays) * 24 * time.Hour
			if removed, err := observers.PurgeArtifacts(dir, maxAge, "metrics.jsonl"); err != nil {
				slog.Warn("artifact_purge_failed", "error", err.Error())
			} else if removed > 0 {
				slog.Info("artifacts_purged", "removed", removed, "dir", dir)
			}
		}
		timelineObs = observers.NewTimelineObserver(dir)
		costObs = observers.NewCostObserver(dir)
		obsList = append(obsList, timelineObs, costObs)
		if f, err := openMetricsLog(dir); err != nil {
			slog.Warn("metrics_log_unavailable", "error", err.Error())
		} else {
			metricsFile = f
			var jsonlObs metrics.Observer = metrics.NewJSONLObserver(f)
			if rate := cfg.Observability.MetricsSampleRate; rate > 0 && rate < 1 {
				jsonlObs = metrics.NewSamplingObserver(jsonlObs, rate)
			}
			obsList = append(obsList, jsonlObs)
		}
	}
	multiObs := observers.NewMultiObserver(obsList...)
	asyncObs := metrics.NewAsyncObserver(multiObs, 2048)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	provider, err := providers.BuildLLM(cfg.Vendors.LLM.Provider, cfg)
	if err != nil {
		return nil, err
	}
	if withObs, ok := provider.(interface{ SetObserver(metrics.Observer) }); ok {
		withObs.SetObserver(asyncObs)
	}

	var imageGen image.Generator
	if strings.TrimSpace(cfg.Vendors.Image.Provider) != "" {
		imageGen, err = providers.BuildImage(cfg.Vendors.Image.Provider, cfg)
		if err != nil {
			return nil, err
		}
	}
	var speechSyn speech.Synthesizer
	if strings.TrimSpace(cfg.Vendors.Speech.Provider) != "" {
		speechSyn, err = providers.BuildSpeech(cfg.Vendors.Speech.Provider, cfg)
		if err != nil {
			return nil, err
		}
	}

	registry := opts.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}

	ctrlOpts := []turn.Option{turn.WithObserver(asyncObs)}
	if cfg.Turn.ToolTimeoutMS > 0 {
		ctrlOpts = append(ctrlOpts, turn.WithToolTimeout(time.Duration(cfg.Turn.ToolTimeoutMS)*time.Millisecond))
	}
	controller := turn.NewController(provider, registry, ctrlOpts...)

	transport := opts.Transport
	if transport == nil {
		transport, err = buildTransport(cfg, ws.Deps{
			Runner:       controller,
			SystemPrompt: cfg.SystemPrompt,
			Image:        imageGen,
			Speech:       speechSyn,
			Observer:     asyncObs,
		})
		if err != nil {
			return nil, err
		}
	}

	hooks := runner.Hooks{
		OnStart: func() {
			fields := []any{"message", "Jetway Engine Ready"}
			if rr, ok := transport.(transports.ReadyReporter); ok {
				for k, v := range rr.ReadyFields() {
					fields = append(fields, k, v)
				}
			}
			slog.Info("engine_ready", fields...)
		},
		OnStop: func() error {
			var errs []error
			if asyncObs != nil {
				asyncObs.Close()
			}
			if timelineObs != nil {
				errs = append(errs, timelineObs.Close())
			}
			if costObs != nil {
				errs = append(errs, costObs.Close())
			}
			if metricsFile != nil {
				errs = append(errs, metricsFile.Close())
			}
			slog.Info("shutdown", "goroutines", runtime.NumGoroutine())
			return errors.Join(errs...)
		},
	}

	drainer := runner.DrainerFunc(func() error {
		if transport == nil {
			return nil
		}
		if d, ok := transport.(transports.Drainable); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			_ = d.WaitForEmpty(ctx)
		}
		return transport.Stop()
	})

	lr := runner.NewLifecycleRunner(drainer, hooks, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:        cfg,
		providers:  providers,
		transport:  transport,
		controller: controller,
		runner:     lr,
		asyncObs:   asyncObs,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// buildTransport constructs the conversation surface named in config. The
// surface needs the turn stack, so construction lives here rather than in
// the caller.
func buildTransport(cfg Config, deps ws.Deps) (transports.Transport, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transports.Provider)) {
	case "ws":
		if err := validateSettings("transports.settings", cfg.Transports.Settings, configutil.Schema{
			Optional: []string{"server_addr", "ws_path", "page_path", "allow_any_origin", "allowed_origins"},
		}); err != nil {
			return nil, err
		}
		var wsCfg ws.Config
		if err := configutil.DecodeSettings(cfg.Transports.Settings, &wsCfg); err != nil {
			return nil, err
		}
		return ws.New(wsCfg, deps)
	case "mock":
		return mocktransport.New(), nil
	default:
		return nil, fmt.Errorf("unsupported transport provider: %s", cfg.Transports.Provider)
	}
}

func validateSettings(path string, input map[string]any, schema configutil.Schema) error {
	if err := configutil.ValidateSettings(input, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func openMetricsLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "metrics.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.transport != nil {
		if err := e.transport.Start(ctx); err != nil {
			return err
		}
	}
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

func (e *Engine) ProviderRegistry() *ProviderRegistry {
	return e.providers
}

func (e *Engine) Transport() transports.Transport {
	return e.transport
}

func (e *Engine) Controller() *turn.Controller {
	return e.controller
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

func (e *Engine) Health() error {
	if e.transport == nil {
		return fmt.Errorf("missing transport")
	}
	return nil
}
