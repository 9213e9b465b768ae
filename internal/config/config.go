package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 汇总服务运行参数。
type Config struct {
	HTTP            HTTPConfig    `yaml:"http"`
	GRPC            GRPCConfig    `yaml:"grpc"`
	Metrics         MetricsConfig `yaml:"metrics"`
	Log             LogConfig     `yaml:"log"`
	Token           TokenConfig   `yaml:"token"`
	Tracing         TracingConfig `yaml:"tracing"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HTTPConfig 控制 JSON API 监听与超时。Addr 支持 host:port、unix://path、vsock://port。
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// GRPCConfig 控制 gRPC health 服务，Addr 为空表示关闭。
type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig 控制 /metrics 监听，Addr 为空表示关闭。
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TokenConfig 存放 SPL token 相关的默认值。
type TokenConfig struct {
	// TransferDecimals 用于 /send/token 请求未携带 decimals 的情况。
	TransferDecimals uint8 `yaml:"transfer_decimals"`
}

// TracingConfig 控制 OpenTelemetry trace 导出。Exporter 为空或 "none" 表示只传播上下文、不导出。
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

const minBodyBytes = 1 << 10

// Default 返回默认配置。
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
			MaxBodyBytes: 2 << 20,
		},
		GRPC:            GRPCConfig{Addr: ":9090"},
		Metrics:         MetricsConfig{Addr: ":9100"},
		Log:             LogConfig{Level: "info", Format: "text"},
		Token:           TokenConfig{TransferDecimals: 6},
		Tracing:         TracingConfig{ServiceName: "solana-api", SampleRatio: 1},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load 依次应用默认值、YAML 文件（path 为空则跳过）、SOLANA_* 环境变量，并校验结果。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("SOLANA_HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv("SOLANA_GRPC_ADDR"); ok {
		c.GRPC.Addr = v
	}
	if v, ok := os.LookupEnv("SOLANA_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("SOLANA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SOLANA_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv("SOLANA_TRACE_EXPORTER"); ok {
		c.Tracing.Exporter = v
	}
	if v := os.Getenv("SOLANA_TRACE_SERVICE_NAME"); v != "" {
		c.Tracing.ServiceName = v
	}
	if v := os.Getenv("SOLANA_TRACE_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SOLANA_TRACE_SAMPLE_RATIO: %w", err)
		}
		c.Tracing.SampleRatio = ratio
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SOLANA_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout},
		{"SOLANA_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout},
		{"SOLANA_HTTP_IDLE_TIMEOUT", &c.HTTP.IdleTimeout},
		{"SOLANA_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
	}
	for _, d := range durations {
		value := os.Getenv(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	if v := os.Getenv("SOLANA_HTTP_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SOLANA_HTTP_MAX_BODY_BYTES: %w", err)
		}
		c.HTTP.MaxBodyBytes = n
	}
	if v := os.Getenv("SOLANA_TRANSFER_DECIMALS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("SOLANA_TRANSFER_DECIMALS: %w", err)
		}
		c.Token.TransferDecimals = uint8(n)
	}
	return nil
}

// Validate 检查配置是否可用于启动。
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.IdleTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if c.HTTP.MaxBodyBytes < minBodyBytes {
		errs = append(errs, fmt.Errorf("http.max_body_bytes must be at least %d", minBodyBytes))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unsupported log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log.format %q", c.Log.Format))
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("unsupported tracing.exporter %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
