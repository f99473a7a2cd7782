package procflow

import "log/slog"

type clientConfig struct {
	logger      *slog.Logger
	serviceName string
	exchange    string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

func newClientConfig(options []ClientOption) *clientConfig {
	cfg := &clientConfig{
		logger:      slog.Default(),
		serviceName: "procflow",
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger used by the client and its emitters.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithServiceName stamps emitted events with the given source service name.
func WithServiceName(name string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.serviceName = name
	}
}

// WithExchange overrides the exchange lifecycle events are published to.
func WithExchange(exchange string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.exchange = exchange
	}
}
