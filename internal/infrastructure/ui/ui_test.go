package ui

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/application/windows"
)

func TestLoadingScreen(t *testing.T) {
	l := NewLoadingScreen()
	assert.False(t, l.Visible())

	require.NoError(t, l.Show(context.Background()))
	assert.True(t, l.Visible())
	assert.Equal(t, 0.0, l.Progress())

	l.SetProgress(0.5)
	assert.Equal(t, 0.5, l.Progress())
	l.SetProgress(3)
	assert.Equal(t, 1.0, l.Progress())

	require.NoError(t, l.Hide(context.Background()))
	assert.False(t, l.Visible())
	assert.Equal(t, 1, l.Shows())
}

func TestLoadingScreen_ShowCancelled(t *testing.T) {
	l := NewLoadingScreen()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Show(ctx), context.Canceled)
	assert.False(t, l.Visible())
}

type recordingCloser struct {
	results []any
}

func (c *recordingCloser) Close(result any) {
	c.results = append(c.results, result)
}

func TestPanel_IsWindowView(t *testing.T) {
	tmpl := NewPanelTemplate(7, PanelStyle{Title: "confirm", Width: 100, Height: 60})
	assert.Equal(t, int64(7), tmpl.TemplateID())
	assert.Equal(t, "confirm", tmpl.Name())

	obj := tmpl.Instantiate()
	view, ok := obj.(windows.View)
	require.True(t, ok)

	c := &recordingCloser{}
	view.Bind(c)
	view.SetSortingOrder(210)
	view.OnShown()

	p := view.(*Panel)
	assert.True(t, p.Shown())
	assert.Equal(t, 210, p.SortingOrder())

	p.Answer(true)
	view.RequestClose()
	assert.Equal(t, []any{true, nil}, c.results)

	view.OnHidden()
	p.OnDespawn()
	assert.False(t, p.Shown())
	p.RequestClose()
	assert.Len(t, c.results, 2, "an unbound panel ignores close requests")
}

func TestPanel_ReusedThroughPool(t *testing.T) {
	m := pool.NewManager(nil, pool.DefaultConfig())
	host := m.Host()
	tmpl := NewPanelTemplate(1, PanelStyle{Title: "notice"})

	first := host.Spawn(tmpl, nil)
	require.NotNil(t, first)
	first.(*Panel).Bind(&recordingCloser{})
	host.Despawn(first)

	second := host.Spawn(tmpl, nil)
	assert.Same(t, first, second)
	assert.Nil(t, second.(*Panel).closer)
}

func TestSpark_Falls(t *testing.T) {
	tmpl := NewSparkTemplate(2, color.RGBA{255, 255, 255, 255})
	s := tmpl.Instantiate().(*Spark)

	s.SetPose(pool.Pose{X: 10, Y: 20}, nil)
	s.Step(0.5)
	_, y := s.Position()
	assert.Equal(t, 20.0, y, "inactive sparks stay put")

	s.SetActive(true)
	s.Step(0.5)
	x, y := s.Position()
	assert.Equal(t, 10.0, x)
	assert.Greater(t, y, 20.0)
}
