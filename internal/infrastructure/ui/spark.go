package ui

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/younwookim/stagecraft/internal/application/pool"
)

// SparkTemplate creates sparks, the demo's pooled effect.
type SparkTemplate struct {
	id    int64
	color color.RGBA
}

// NewSparkTemplate creates a spark template.
func NewSparkTemplate(id int64, c color.RGBA) *SparkTemplate {
	return &SparkTemplate{id: id, color: c}
}

func (t *SparkTemplate) TemplateID() int64 { return t.id }

func (t *SparkTemplate) Name() string { return "spark" }

func (t *SparkTemplate) Instantiate() pool.Object {
	return &Spark{color: t.color}
}

// Spark is a small square that falls while active.
type Spark struct {
	mu     sync.Mutex
	color  color.RGBA
	active bool
	x, y   float64
	vy     float64
}

func (s *Spark) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *Spark) SetPose(p pool.Pose, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y = p.X, p.Y
	s.vy = 0
}

func (s *Spark) Destroy() {}

// Active reports whether the spark is spawned.
func (s *Spark) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Step moves the spark by dt seconds.
func (s *Spark) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.vy += 120 * dt
	s.y += s.vy * dt
}

// Position returns the spark's position.
func (s *Spark) Position() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

func (s *Spark) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	active, x, y, c := s.active, s.x, s.y, s.color
	s.mu.Unlock()
	if !active {
		return
	}
	ebitenutil.DrawRect(screen, x, y, 2, 2, c)
}
