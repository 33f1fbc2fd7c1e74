package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Options{})
	require.NoError(t, err)
	_, span := Tracer(tp).Start(context.Background(), "priorart.search")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpointRecordsSpans(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Options{Endpoint: "127.0.0.1:4318", Insecure: true, ServiceName: "test"})
	require.NoError(t, err)
	_, span := Tracer(tp).Start(context.Background(), "priorart.search")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Export to the unreachable collector is abandoned with the context.
	_ = shutdown(ctx)
}
