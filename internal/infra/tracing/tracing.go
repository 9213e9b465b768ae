// Package tracing 初始化 OpenTelemetry：W3C trace context 传播与可选的 span 导出。
package tracing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aegis-sign/solana-api/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider 持有 SDK TracerProvider；导出关闭时为空，调用方拿到 noop 实现。
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup 总是注册 TraceContext/Baggage propagator，Exporter 非空时额外创建并注册全局 TracerProvider。
// stdout exporter 写入 w。
func Setup(cfg config.TracingConfig, w io.Writer) (*Provider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var exporter sdktrace.SpanExporter
	switch strings.ToLower(cfg.Exporter) {
	case "", "none":
		return &Provider{}, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Enabled 表示 span 是否会被导出。
func (p *Provider) Enabled() bool {
	return p != nil && p.tp != nil
}

// TracerProvider 返回用于 otelhttp 的 provider。
func (p *Provider) TracerProvider() trace.TracerProvider {
	if !p.Enabled() {
		return noop.NewTracerProvider()
	}
	return p.tp
}

// Shutdown 刷新尚未导出的 span。
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	return nil
}
