package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
)

type fakeProvider struct {
	id       string
	lastTool string
}

func (p *fakeProvider) Definition() types.Service {
	return types.Service{
		ID:       p.id,
		Name:     p.id,
		Category: types.CategorySystem,
		Tools:    []types.Tool{{ID: p.id + ".noop"}},
	}
}

func (p *fakeProvider) Execute(_ context.Context, toolID string, _ map[string]interface{}) (*types.Result, error) {
	p.lastTool = toolID
	return types.Success(map[string]interface{}{"tool": toolID}), nil
}

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	p := &fakeProvider{id: "demo"}
	require.NoError(t, r.Register(p))

	result, err := r.Execute(context.Background(), "demo.noop", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "demo.noop", p.lastTool)
}

func TestExecuteRejectsBadToolIDs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeProvider{id: "demo"}))

	_, err := r.Execute(context.Background(), "noprefix", nil)
	assert.Error(t, err)

	_, err = r.Execute(context.Background(), "ghost.noop", nil)
	assert.Error(t, err)
}

func TestRegisterRequiresID(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(&fakeProvider{id: ""}))
}

type failingProvider struct {
	id string
}

func (p *failingProvider) Definition() types.Service {
	return types.Service{ID: p.id, Name: p.id, Category: types.CategorySystem}
}

func (p *failingProvider) Execute(_ context.Context, _ string, _ map[string]interface{}) (*types.Result, error) {
	return nil, errors.New("backend unavailable")
}

func TestExecuteRecordsProxyMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	r := NewRegistry().WithMetrics(m)
	require.NoError(t, r.Register(&fakeProvider{id: "demo"}))
	require.NoError(t, r.Register(&failingProvider{id: "broken"}))

	_, err := r.Execute(context.Background(), "demo.noop", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.ProxyCalls.WithLabelValues("demo", "demo.noop", "success")))

	_, err = r.Execute(context.Background(), "broken.noop", nil)
	require.Error(t, err)
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.ProxyCalls.WithLabelValues("broken", "broken.noop", "error")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.ProxyErrors.WithLabelValues("broken", "broken.noop")))
}

func TestListAndStats(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeProvider{id: "a"}))
	require.NoError(t, r.Register(&fakeProvider{id: "b"}))

	assert.Len(t, r.List(), 2)

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
}
