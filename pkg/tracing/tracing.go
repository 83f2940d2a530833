package tracing

import (
	"fmt"

	"github.com/opentracing/opentracing-go"
	jCfg "github.com/uber/jaeger-client-go/config"
	jZap "github.com/uber/jaeger-client-go/log/zap"
	"github.com/uber/jaeger-lib/metrics"
	"go.uber.org/zap"
)

type Config struct {
	Service    string
	Host       string // jaeger agent; empty keeps the no-op tracer
	Port       int
	SampleRate float64 // 0 or >= 1 samples every trace
}

func (c Config) sampler() *jCfg.SamplerConfig {
	if c.SampleRate > 0 && c.SampleRate < 1 {
		return &jCfg.SamplerConfig{Type: "probabilistic", Param: c.SampleRate}
	}
	return &jCfg.SamplerConfig{Type: "const", Param: 1}
}

// InitTracer installs a jaeger tracer as the global opentracing tracer and returns a flush func
// for shutdown.
func InitTracer(conf Config, log *zap.Logger) (opentracing.Tracer, func(), error) {
	if conf.Host == "" {
		return opentracing.GlobalTracer(), func() {}, nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if conf.Service == "" {
		conf.Service = "solana-sniper"
	}
	cfg := &jCfg.Configuration{
		ServiceName: conf.Service,
		Sampler:     conf.sampler(),
		Reporter: &jCfg.ReporterConfig{
			LocalAgentHostPort: fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		},
	}

	tracer, closer, err := cfg.NewTracer(
		jCfg.Logger(jZap.NewLogger(log.Named("jaeger"))),
		jCfg.Metrics(metrics.NullFactory),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	log.Info("tracing enabled", zap.String("agent", cfg.Reporter.LocalAgentHostPort), zap.String("service", conf.Service))
	return tracer, func() {
		if err := closer.Close(); err != nil {
			log.Warn("closing jaeger tracer", zap.Error(err))
		}
	}, nil
}
