package loader

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (s *stubFeature) Name() string    { return s.name }
func (s *stubFeature) IsEnabled() bool { return s.enabled }
func (s *stubFeature) Load(fiber.Router) error {
	s.loaded = true
	return s.err
}

func TestManager_LoadAll(t *testing.T) {
	on := &stubFeature{name: "sync", enabled: true}
	off := &stubFeature{name: "integrity"}

	m := NewManager()
	m.Register(on)
	m.Register(off)

	assert.NoError(t, m.LoadAll(fiber.New()))
	assert.True(t, on.loaded)
	assert.False(t, off.loaded)
	assert.Len(t, m.Features(), 2)
}

func TestManager_LoadAllError(t *testing.T) {
	m := NewManager()
	m.Register(&stubFeature{name: "broken", enabled: true, err: errors.New("boom")})
	next := &stubFeature{name: "next", enabled: true}
	m.Register(next)

	err := m.LoadAll(fiber.New())
	assert.ErrorContains(t, err, "load feature broken")
	assert.False(t, next.loaded)
}
