package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanpawarit/interviewforge/agent/agents/orchestrator"
	stagex "github.com/tanpawarit/interviewforge/agent/agents/stage"
	"github.com/tanpawarit/interviewforge/agent/answer"
	"github.com/tanpawarit/interviewforge/agent/artifact"
	"github.com/tanpawarit/interviewforge/agent/capability"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	llmx "github.com/tanpawarit/interviewforge/agent/llm"
	"github.com/tanpawarit/interviewforge/agent/memory"
	configx "github.com/tanpawarit/interviewforge/pkg/config"
	logx "github.com/tanpawarit/interviewforge/pkg/logger"
	qstashx "github.com/tanpawarit/interviewforge/pkg/qstash"
)

type AppConfig struct {
	OutputDir       string        `split_words:"true" default:"out"`
	MemoryFile      string        `split_words:"true" default:"memory_bank.json"`
	HistoryBackend  string        `split_words:"true" default:"file"`
	FanOut          bool          `split_words:"true" default:"false"`
	FanOutTimeout   time.Duration `split_words:"true" default:"30s"`
	FanOutLimit     int           `split_words:"true" default:"3"`
	RoundCategories []string      `split_words:"true"`
}

type app struct {
	orchestrator *orchestrator.Orchestrator
	closers      []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func loadLogger() (zerolog.Logger, error) {
	logCfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("load log config: %w", err)
	}
	return logx.Init(*logCfg), nil
}

func newApp(ctx context.Context, stdin io.Reader, stdout io.Writer, interactive bool) (*app, error) {
	logger, err := loadLogger()
	if err != nil {
		return nil, err
	}

	appCfg, err := configx.New[AppConfig]("INTERVIEWFORGE")
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil {
		return nil, fmt.Errorf("load llm config: %w", err)
	}

	caps, err := capability.ForStages(ctx, *llmCfg)
	if err != nil {
		return nil, fmt.Errorf("build text capabilities: %w", err)
	}
	logger.Info().Str("provider", string(llmCfg.ResolvedProvider())).Msg("text capability ready")

	a := &app{}
	store, closer, err := openStore(ctx, *appCfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	sink, err := buildSink(*appCfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var answers contractx.AnswerProvider = answer.Canned{}
	if interactive {
		answers = answer.NewInteractive(stdin, stdout)
	}

	o, err := orchestrator.New(orchestrator.Config{
		FanOut: stagex.FanOut{
			Enabled:    appCfg.FanOut,
			Categories: appCfg.RoundCategories,
			Limit:      appCfg.FanOutLimit,
			Timeout:    appCfg.FanOutTimeout,
		},
	}, orchestrator.Deps{
		Capability:        capability.Absent{},
		StageCapabilities: caps,
		Answers:           answers,
		Store:             store,
		Sink:              sink,
		Logger:            &logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}
	a.orchestrator = o
	return a, nil
}

// openStore opens the run history backend named by HISTORY_BACKEND.
func openStore(ctx context.Context, cfg AppConfig, logger zerolog.Logger) (contractx.RunStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.HistoryBackend)) {
	case "", "file":
		bank, err := memory.OpenFileBank(cfg.MemoryFile, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory bank: %w", err)
		}
		return bank, nil, nil
	case "upstash":
		upCfg, err := configx.New[memory.UpstashConfig]("UPSTASH")
		if err != nil {
			return nil, nil, fmt.Errorf("load upstash config: %w", err)
		}
		bank, err := memory.OpenUpstashBank(ctx, *upCfg, memory.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open upstash memory bank: %w", err)
		}
		return bank, nil, nil
	case "postgres":
		pgCfg, err := configx.New[memory.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, nil, fmt.Errorf("load postgres config: %w", err)
		}
		bank, err := memory.OpenPostgresBank(ctx, *pgCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres memory bank: %w", err)
		}
		return bank, bank.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown history backend %q", contractx.ErrValidation, cfg.HistoryBackend)
	}
}

// buildSink writes artifacts to OUTPUT_DIR and, when QStash is configured,
// also publishes the run summary.
func buildSink(cfg AppConfig, logger zerolog.Logger) (contractx.OutputSink, error) {
	dir, err := artifact.NewDirSink(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	qCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, fmt.Errorf("load qstash config: %w", err)
	}
	if !qCfg.Enabled() {
		return dir, nil
	}

	client, err := qstashx.NewClient(*qCfg)
	if err != nil {
		return nil, fmt.Errorf("create qstash client: %w", err)
	}
	pub, err := artifact.NewQStashSink(client, qCfg.Destination, logger)
	if err != nil {
		return nil, fmt.Errorf("create qstash sink: %w", err)
	}
	return artifact.MultiSink{dir, pub}, nil
}
