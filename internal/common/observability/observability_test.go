// internal/common/observability/observability_test.go
package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestRecordDispatchExportsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := New("orchestrator-test", WithRegisterer(reg))
	defer obs.Shutdown()

	obs.RecordDispatch(context.Background(), "QUOTE_REQUEST", "quote_options", 120*time.Millisecond)
	obs.RecordStage(context.Background(), "inventory", true, 15*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "dispatch_requests")
	assert.Contains(t, joined, "quote_stage_duration")
}

func TestStartSpanWithoutJaeger(t *testing.T) {
	obs := New("orchestrator-test", WithRegisterer(promclient.NewRegistry()))
	defer obs.Shutdown()

	ctx, end := obs.StartSpan(context.Background(), "dispatch", attribute.String("intent", "HELP"))
	assert.NotNil(t, ctx)
	assert.NotPanics(t, end)
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordDispatch(context.Background(), "HELP", "text", time.Millisecond)
		obs.RecordStage(context.Background(), "costing", false, time.Millisecond)
		_, end := obs.StartSpan(context.Background(), "noop")
		end()
		obs.Shutdown()
	})
}
