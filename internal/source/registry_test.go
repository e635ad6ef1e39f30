package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource is a minimal Source for registry and orchestration tests.
type stubSource struct {
	name   string
	cancel bool
	run    func(ctx context.Context, params Params, report ReportFunc) error
}

func (s *stubSource) Name() string         { return s.name }
func (s *stubSource) Label() string        { return "Stub " + s.name }
func (s *stubSource) SupportsParams() bool { return false }
func (s *stubSource) SupportsCancel() bool { return s.cancel }
func (s *stubSource) Run(ctx context.Context, params Params, report ReportFunc) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, params, report)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	require.ErrorIs(t, err, ErrUnknownSource)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSource{name: "alpha"})

	s, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", s.Name())
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSource{name: "zulu"})
	r.Register(&stubSource{name: "alpha"})
	r.Register(&stubSource{name: "mike"})

	infos := r.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "zulu", infos[0].Name)
	assert.Equal(t, "alpha", infos[1].Name)
	assert.Equal(t, "mike", infos[2].Name)
}

func TestRegistry_ReregisterKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubSource{name: "alpha"})
	r.Register(&stubSource{name: "beta"})
	r.Register(&stubSource{name: "alpha", cancel: true})

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.True(t, infos[0].SupportsCancel)
}
