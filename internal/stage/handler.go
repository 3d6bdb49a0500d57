// Package stage defines the contract pipeline stages implement for the
// orchestrator.
package stage

import (
	"context"

	"podpirate/internal/store"
)

// Handler describes the contract the orchestrator needs from each stage.
type Handler interface {
	Execute(context.Context, *store.Episode) error
	HealthCheck(context.Context) Health
}
