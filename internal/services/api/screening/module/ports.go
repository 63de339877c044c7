package module

import (
	"context"

	"litscreen/internal/adapters/projects"
	"litscreen/internal/modkit/httpkit"
	"litscreen/internal/services/api/screening/domain"
	svc "litscreen/internal/services/api/screening/service"
	adom "litscreen/internal/services/audit/domain"
)

// Ports are optional collaborators injected with modkit.WithPorts
type Ports struct {
	// Auth replaces the HMAC bearer verifier
	Auth httpkit.AuthPort
	// Projects replaces the configured policy and role providers
	Projects projects.Provider
	// Options override non zero config values
	Options Options
}

// Exposed is what the module registers for other modules
type Exposed struct {
	Service domain.ServicePort
	// Outbox is set when the engine runs on the in memory store
	Outbox adom.Outbox
	// AddHook subscribes to facts committed by finalizations
	AddHook func(domain.FactHook)
	// Attach registers a work with a project
	Attach func(ctx context.Context, projectID, workID string) (domain.ProjectWork, error)
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// adaptScreeningPort narrows the service to the domain port
type adaptScreeningPort struct{ svc.Service }
