package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/nielm/counters-test/config"
	"github.com/nielm/counters-test/logging"
)

// PlatformGenericTask is the platform value forced when the generic-task
// workaround is enabled. The managed-function platform cannot propagate an
// instance dimension on its native resource mapping, so the identity is
// downgraded to a generic task that can.
const PlatformGenericTask = "generic_task"

// State is the resolver's position in the one-shot initialization sequence.
type State int32

const (
	StateUninitialized State = iota
	StateDetecting
	StateMerging
	StateOrchestrationCheck
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateDetecting:
		return "DETECTING"
	case StateMerging:
		return "MERGING"
	case StateOrchestrationCheck:
		return "ORCHESTRATION_CHECK"
	case StateResolved:
		return "RESOLVED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Resolver merges auto-detected and assigned resource attributes into the
// identity the metrics pipeline is tagged with. It is a one-shot state
// machine; Resolve must be called exactly once, before Bootstrap.
type Resolver struct {
	cfg      *config.Config
	logger   logging.Logger
	detector resource.Detector
	state    atomic.Int32
}

// NewResolver creates a resolver over the given configuration.
func NewResolver(cfg *config.Config, logger logging.Logger) *Resolver {
	return &Resolver{
		cfg:      cfg,
		logger:   logger,
		detector: &EnvDetector{Config: cfg, Metadata: gceMetadata{}},
	}
}

// State returns the resolver's current state.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

func (r *Resolver) setState(s State) {
	r.state.Store(int32(s))
}

// fail marks the resolver failed and wraps the cause. Any failure here is
// fatal to the process: serving with a broken metrics identity would emit
// silently misattributed series.
func (r *Resolver) fail(err error) error {
	r.setState(StateFailed)
	return fmt.Errorf("resource identity resolution failed: %w", err)
}

// Resolve runs detection, applies the platform disambiguation rules, and
// returns the fully-resolved identity. No timeout is imposed: a hung
// detector hangs startup, and the platform's startup deadline is the
// backstop.
func (r *Resolver) Resolve(ctx context.Context) (*resource.Resource, error) {
	cfg := r.cfg

	r.setState(StateDetecting)
	detected, err := StartDetection(ctx, r.detector).Wait(ctx)
	if detected == nil {
		return nil, r.fail(err)
	}
	if err != nil {
		// Partial detection is acceptable; a weaker identity beats no metrics.
		r.logger.Warn("environment detection incomplete", map[string]interface{}{
			"error": err.Error(),
		})
	}

	r.setState(StateMerging)
	assigned := []attribute.KeyValue{
		semconv.ServiceNamespace(cfg.Namespace),
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}

	if cfg.OnKubernetes() {
		if cfg.PodName != "" {
			assigned = append(assigned, semconv.K8SPodName(cfg.PodName))
		} else {
			r.logger.Warn("running under Kubernetes but POD_NAME is not set", map[string]interface{}{
				"impact": "metric series from replica pods may collide",
			})
		}
	}

	r.setState(StateOrchestrationCheck)
	if !cfg.GenericTaskWorkaround {
		r.logger.Warn("generic-task workaround not enabled, using platform default resource mapping", map[string]interface{}{
			"action": "set OTEL_GENERIC_TASK_WORKAROUND=true to opt in",
		})
	} else if cfg.OnManagedFunction() {
		assigned = append(assigned, semconv.CloudPlatformKey.String(PlatformGenericTask))
		if v, ok := detected.Set().Value(semconv.FaaSInstanceKey); ok && v.AsString() != "" {
			assigned = append(assigned, semconv.ServiceInstanceID(v.AsString()))
		} else {
			r.logger.Warn("function instance identifier was not detected", map[string]interface{}{
				"impact": "service.instance.id left unset; concurrent instances may collide",
			})
		}
	}

	// Assigned keys win over detected ones. The assigned set is schemaless
	// so the merge cannot fail on schema conflicts; any remaining error is
	// fatal like every other resolution error.
	merged, err := resource.Merge(detected, resource.NewSchemaless(assigned...))
	if err != nil {
		return nil, r.fail(err)
	}

	r.setState(StateResolved)
	r.logger.Info("resource identity resolved", map[string]interface{}{
		"attributes": merged.String(),
	})
	return merged, nil
}
