//go:build !nometrics

package obs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.0, sampleRatio(0))
	assert.Equal(t, 0.5, sampleRatio(0.5))
	assert.Equal(t, defaultSampleRatio, sampleRatio(-1))

	sampler := sdktrace.TraceIDRatioBased(sampleRatio(0))
	for _, id := range []trace.TraceID{{}, {15: 1}, {8: 0x7f, 15: 0xff}} {
		res := sampler.ShouldSample(sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: id})
		assert.Equal(t, sdktrace.Drop, res.Decision)
	}
}
