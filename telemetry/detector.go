// Package telemetry resolves the resource identity of the running process
// and constructs the metrics pipeline bound to it.
//
// Initialization is strictly sequential: environment detection completes
// first, the resolver merges detected and assigned attributes, and only then
// is the meter provider constructed. Counter handles returned from Bootstrap
// are safe for concurrent use.
package telemetry

import (
	"context"
	"os"

	"cloud.google.com/go/compute/metadata"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/nielm/counters-test/config"
)

// MetadataClient abstracts the cloud instance-metadata service so detection
// can be exercised without network access.
type MetadataClient interface {
	Available() bool
	ProjectID(ctx context.Context) (string, error)
	InstanceID(ctx context.Context) (string, error)
}

// gceMetadata queries the GCE metadata server.
type gceMetadata struct{}

func (gceMetadata) Available() bool { return metadata.OnGCE() }
func (gceMetadata) ProjectID(ctx context.Context) (string, error) {
	return metadata.ProjectIDWithContext(ctx)
}
func (gceMetadata) InstanceID(ctx context.Context) (string, error) {
	return metadata.InstanceIDWithContext(ctx)
}

// EnvDetector implements resource.Detector. It produces a best-effort
// identity from environment variables and, when running on GCP, the instance
// metadata service. Detection never fails: attributes that cannot be
// determined are simply omitted.
type EnvDetector struct {
	Config *config.Config
	// Metadata may be nil, in which case the metadata service is not queried.
	Metadata MetadataClient
}

// Detect builds the detected attribute set.
func (d *EnvDetector) Detect(ctx context.Context) (*resource.Resource, error) {
	var attrs []attribute.KeyValue

	cfg := d.Config
	projectID := cfg.ProjectID

	if cfg.OnManagedFunction() {
		attrs = append(attrs,
			semconv.CloudProviderGCP,
			semconv.CloudPlatformGCPCloudFunctions,
		)
	}
	if v := os.Getenv("K_SERVICE"); v != "" {
		attrs = append(attrs, semconv.FaaSName(v))
	}
	if v := os.Getenv("K_REVISION"); v != "" {
		attrs = append(attrs, semconv.FaaSVersion(v))
	}

	if d.Metadata != nil && d.Metadata.Available() {
		if projectID == "" {
			if v, err := d.Metadata.ProjectID(ctx); err == nil {
				projectID = v
			}
		}
		if v, err := d.Metadata.InstanceID(ctx); err == nil && v != "" {
			attrs = append(attrs, semconv.FaaSInstance(v))
		}
	}

	if projectID != "" {
		attrs = append(attrs, attribute.String("gcp.project_id", projectID))
	}

	// Schemaless so merging with the SDK's own detectors cannot conflict.
	return resource.NewSchemaless(attrs...), nil
}

// Detection is the asynchronous-completion handle for an in-flight
// environment detection.
type Detection struct {
	done chan struct{}
	res  *resource.Resource
	err  error
}

// StartDetection runs full auto-detection in the background and returns a
// handle to await it. The detection combines the given detector with the
// SDK's standard environment, host and SDK detectors.
func StartDetection(ctx context.Context, det resource.Detector) *Detection {
	d := &Detection{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		d.res, d.err = resource.New(ctx,
			resource.WithFromEnv(),
			resource.WithTelemetrySDK(),
			resource.WithHost(),
			resource.WithDetectors(det),
		)
	}()
	return d
}

// Wait blocks until detection completes or the context is cancelled.
// A partially-detected resource is returned together with the error that
// truncated it; the caller decides whether partial results are acceptable.
func (d *Detection) Wait(ctx context.Context) (*resource.Resource, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.done:
		return d.res, d.err
	}
}
