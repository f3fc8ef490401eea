package gateway

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Constructor builds a gateway from shared credentials.
type Constructor func(cfg *Config) (Gateway, error)

// Config holds credentials shared across provider constructors.
type Config struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	Environment         string
	WalletDelay         time.Duration
}

// Registry resolves providers by identifier. Providers register a
// constructor once at startup; resolution after that is a plain lookup, and
// resolved gateways are cached so each provider is constructed once.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	instances    map[string]Gateway
	cfg          *Config
}

// NewRegistry creates a registry with the built-in providers registered.
func NewRegistry(cfg *Config) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		instances:    make(map[string]Gateway),
		cfg:          cfg,
	}

	r.Register("wallet", func(cfg *Config) (Gateway, error) {
		return NewWalletGateway(cfg.WalletDelay), nil
	})
	r.Register("stripe", func(cfg *Config) (Gateway, error) {
		return NewStripeGateway(&StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Environment:   cfg.Environment,
		})
	})

	return r
}

// Register adds a provider constructor under an identifier.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[strings.ToLower(name)] = ctor
}

// Resolve returns the gateway for a provider identifier.
func (r *Registry) Resolve(name string) (Gateway, error) {
	key := strings.ToLower(name)

	r.mu.RLock()
	if gw, ok := r.instances[key]; ok {
		r.mu.RUnlock()
		return gw, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if gw, ok := r.instances[key]; ok {
		return gw, nil
	}
	ctor, ok := r.constructors[key]
	if !ok {
		return nil, fmt.Errorf("unsupported gateway provider: %s", name)
	}
	gw, err := ctor(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to construct gateway %s: %w", name, err)
	}
	r.instances[key] = gw
	return gw, nil
}
