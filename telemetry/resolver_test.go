package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/nielm/counters-test/config"
)

// newTestResolver builds a resolver whose detector never touches the
// metadata service.
func newTestResolver(cfg *config.Config, logger *recordingLogger) *Resolver {
	r := NewResolver(cfg, logger)
	r.detector = &EnvDetector{Config: cfg}
	return r
}

func baseConfig() *config.Config {
	return &config.Config{
		Namespace:      config.DefaultNamespace,
		ServiceName:    config.DefaultServiceName,
		ServiceVersion: config.Version,
	}
}

func attrValue(t *testing.T, res *resource.Resource, key string) (string, bool) {
	t.Helper()
	for _, kv := range res.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestResolveAlwaysContainsStaticIdentity(t *testing.T) {
	logger := &recordingLogger{}
	r := newTestResolver(baseConfig(), logger)

	require.Equal(t, StateUninitialized, r.State())

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateResolved, r.State())

	for key, want := range map[string]string{
		string(semconv.ServiceNamespaceKey): config.DefaultNamespace,
		string(semconv.ServiceNameKey):      config.DefaultServiceName,
		string(semconv.ServiceVersionKey):   config.Version,
	} {
		got, ok := attrValue(t, res, key)
		require.True(t, ok, "missing %s", key)
		assert.Equal(t, want, got)
	}
}

func TestResolvePodNameUnderKubernetes(t *testing.T) {
	cfg := baseConfig()
	cfg.KubernetesHost = "10.0.0.1"
	cfg.PodName = "counters-abc-123"
	cfg.GenericTaskWorkaround = true

	logger := &recordingLogger{}
	res, err := newTestResolver(cfg, logger).Resolve(context.Background())
	require.NoError(t, err)

	got, ok := attrValue(t, res, string(semconv.K8SPodNameKey))
	require.True(t, ok)
	assert.Equal(t, "counters-abc-123", got)
	assert.Zero(t, logger.warningCount())
}

func TestResolveMissingPodNameWarnsAndContinues(t *testing.T) {
	cfg := baseConfig()
	cfg.KubernetesHost = "10.0.0.1"
	cfg.GenericTaskWorkaround = true

	logger := &recordingLogger{}
	r := newTestResolver(cfg, logger)
	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateResolved, r.State())

	_, ok := attrValue(t, res, string(semconv.K8SPodNameKey))
	assert.False(t, ok, "pod name key must be omitted")
	assert.Equal(t, 1, logger.warningCount())
}

func TestResolveGenericTaskWorkaroundForcesPlatform(t *testing.T) {
	cfg := baseConfig()
	cfg.FunctionTarget = "handler"
	cfg.GenericTaskWorkaround = true

	logger := &recordingLogger{}
	res, err := newTestResolver(cfg, logger).Resolve(context.Background())
	require.NoError(t, err)

	// The detector reports gcp_cloud_functions; the workaround must win.
	got, ok := attrValue(t, res, string(semconv.CloudPlatformKey))
	require.True(t, ok)
	assert.Equal(t, PlatformGenericTask, got)
}

func TestResolveCopiesDetectedInstanceID(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "faas.instance=abc123")

	cfg := baseConfig()
	cfg.FunctionTarget = "handler"
	cfg.GenericTaskWorkaround = true

	logger := &recordingLogger{}
	res, err := newTestResolver(cfg, logger).Resolve(context.Background())
	require.NoError(t, err)

	got, ok := attrValue(t, res, string(semconv.ServiceInstanceIDKey))
	require.True(t, ok)
	assert.Equal(t, "abc123", got)
	assert.Zero(t, logger.warningCount())
}

func TestResolveMissingInstanceIDWarns(t *testing.T) {
	cfg := baseConfig()
	cfg.FunctionTarget = "handler"
	cfg.GenericTaskWorkaround = true

	logger := &recordingLogger{}
	res, err := newTestResolver(cfg, logger).Resolve(context.Background())
	require.NoError(t, err)

	_, ok := attrValue(t, res, string(semconv.ServiceInstanceIDKey))
	assert.False(t, ok, "instance id key must be omitted")
	assert.Equal(t, 1, logger.warningCount())
}

func TestResolveWorkaroundDisabledWarns(t *testing.T) {
	cfg := baseConfig()
	cfg.FunctionTarget = "handler"

	logger := &recordingLogger{}
	res, err := newTestResolver(cfg, logger).Resolve(context.Background())
	require.NoError(t, err)

	got, ok := attrValue(t, res, string(semconv.CloudPlatformKey))
	require.True(t, ok)
	assert.Equal(t, semconv.CloudPlatformGCPCloudFunctions.Value.AsString(), got,
		"platform must keep its detected value")
	assert.Equal(t, 1, logger.warningCount())
}

// blockedDetector holds detection open until released, so cancellation is
// the only way Resolve can finish.
type blockedDetector struct {
	release chan struct{}
}

func (b *blockedDetector) Detect(context.Context) (*resource.Resource, error) {
	<-b.release
	return nil, nil
}

func TestResolveFailureIsTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := &recordingLogger{}
	r := newTestResolver(baseConfig(), logger)
	bd := &blockedDetector{release: make(chan struct{})}
	r.detector = bd
	t.Cleanup(func() { close(bd.release) })

	res, err := r.Resolve(ctx)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, StateFailed, r.State())
	assert.ErrorContains(t, err, "resource identity resolution failed")
}

func TestResolveNoPlatformSignals(t *testing.T) {
	logger := &recordingLogger{}
	r := newTestResolver(baseConfig(), logger)
	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateResolved, r.State())

	got, ok := attrValue(t, res, string(semconv.CloudPlatformKey))
	assert.False(t, ok, "no platform should be assigned, got %q", got)
	assert.Len(t, logger.infos, 1, "resolved identity should be logged once")

	// The workaround was not opted into, so the default-behavior warning
	// is logged even though no function target is set.
	require.Equal(t, 1, logger.warningCount())
	assert.Contains(t, logger.warnings[0], "workaround not enabled")
}
