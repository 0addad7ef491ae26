package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabledInstallsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid(), "noop spans carry no context")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitEnabledRequiresEndpoint(t *testing.T) {
	_, err := Init(context.Background(), Config{Enabled: true})
	assert.ErrorContains(t, err, "endpoint")
}
