package ui

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/younwookim/stagecraft/internal/application/pool"
	"github.com/younwookim/stagecraft/internal/application/windows"
)

// PanelStyle is the look of a panel template.
type PanelStyle struct {
	Title  string
	Width  float64
	Height float64
	Color  color.RGBA
}

// PanelTemplate creates panels for the window pool.
type PanelTemplate struct {
	id    int64
	style PanelStyle
}

// NewPanelTemplate creates a template. id must be unique among templates.
func NewPanelTemplate(id int64, style PanelStyle) *PanelTemplate {
	return &PanelTemplate{id: id, style: style}
}

func (t *PanelTemplate) TemplateID() int64 { return t.id }

func (t *PanelTemplate) Name() string { return t.style.Title }

// Instantiate creates an inactive panel.
func (t *PanelTemplate) Instantiate() pool.Object {
	return &Panel{style: t.style}
}

// Panel is a window view drawn as a titled rectangle centered on the screen.
type Panel struct {
	mu     sync.Mutex
	style  PanelStyle
	active bool
	alpha  float64
	dx, dy float64
	order  int
	shown  bool
	closer windows.Closer
}

func (p *Panel) SetActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = active
}

func (p *Panel) SetPose(pool.Pose, any) {}

func (p *Panel) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.closer = nil
}

// OnDespawn clears per-open state when the panel returns to the pool.
func (p *Panel) OnDespawn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alpha, p.dx, p.dy = 0, 0, 0
	p.shown = false
	p.closer = nil
}

func (p *Panel) SetAlpha(alpha float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alpha = alpha
}

func (p *Panel) SetOffset(dx, dy float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dx, p.dy = dx, dy
}

func (p *Panel) SetSortingOrder(order int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = order
}

// SortingOrder returns the order assigned by the window manager.
func (p *Panel) SortingOrder() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order
}

func (p *Panel) Bind(c windows.Closer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closer = c
}

// RequestClose closes the panel without a payload.
func (p *Panel) RequestClose() {
	p.Answer(nil)
}

// Answer closes the panel with result.
func (p *Panel) Answer(result any) {
	p.mu.Lock()
	c := p.closer
	p.mu.Unlock()
	if c != nil {
		c.Close(result)
	}
}

func (p *Panel) OnShown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = true
	p.alpha = 1
}

func (p *Panel) OnHidden() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = false
}

// Shown reports whether the panel finished opening and is not yet hidden.
func (p *Panel) Shown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

// Draw renders the panel at its current alpha and offset.
func (p *Panel) Draw(screen *ebiten.Image) {
	p.mu.Lock()
	st, active, alpha, dx, dy := p.style, p.active, p.alpha, p.dx, p.dy
	p.mu.Unlock()
	if !active || alpha <= 0 {
		return
	}

	b := screen.Bounds()
	x := (float64(b.Dx())-st.Width)/2 + dx
	y := (float64(b.Dy())-st.Height)/2 + dy
	c := st.Color
	c.A = uint8(float64(c.A) * min(alpha, 1))
	ebitenutil.DrawRect(screen, x, y, st.Width, st.Height, c)
	ebitenutil.DebugPrintAt(screen, st.Title, int(x)+4, int(y)+4)
}
