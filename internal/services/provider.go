package services

import "context"

// Provider is an external dependency the player can report health for
type Provider interface {
	// Type returns the service type name
	Type() string

	// HealthCheck checks if the service is available
	HealthCheck(ctx context.Context) error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	serviceType string
}

// Type returns the service type
func (p *BaseProvider) Type() string {
	return p.serviceType
}

// Pinger is anything that can report its own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProvider adapts a Pinger such as the content client or attempt repository
type PingProvider struct {
	BaseProvider
	target Pinger
}

// NewPingProvider wraps target under the given service type
func NewPingProvider(serviceType string, target Pinger) *PingProvider {
	return &PingProvider{BaseProvider: BaseProvider{serviceType: serviceType}, target: target}
}

// HealthCheck pings the target
func (p *PingProvider) HealthCheck(ctx context.Context) error {
	return p.target.Ping(ctx)
}
