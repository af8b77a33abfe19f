// Package ui holds the demo's drawn collaborators: the loading screen, window
// panels, and pooled sparks. Everything is drawn with plain rectangles.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// LoadingScreen is a full-screen progress bar.
type LoadingScreen struct {
	mu       sync.Mutex
	visible  bool
	progress float64
	shows    int

	Background color.RGBA
	Bar        color.RGBA
}

// NewLoadingScreen creates a hidden loading screen.
func NewLoadingScreen() *LoadingScreen {
	return &LoadingScreen{
		Background: color.RGBA{0x10, 0x10, 0x18, 0xff},
		Bar:        color.RGBA{0x60, 0xc0, 0x60, 0xff},
	}
}

// Show makes the screen visible with an empty bar.
func (l *LoadingScreen) Show(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = true
	l.progress = 0
	l.shows++
	return nil
}

// Hide hides the screen.
func (l *LoadingScreen) Hide(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visible = false
	return nil
}

// SetProgress sets the bar, clamped to [0, 1].
func (l *LoadingScreen) SetProgress(p float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = min(max(p, 0), 1)
}

// Visible reports whether the screen is shown.
func (l *LoadingScreen) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Progress returns the bar value.
func (l *LoadingScreen) Progress() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

// Shows returns how many times Show was called.
func (l *LoadingScreen) Shows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shows
}

// Draw renders the screen when visible.
func (l *LoadingScreen) Draw(screen *ebiten.Image) {
	l.mu.Lock()
	visible, p := l.visible, l.progress
	l.mu.Unlock()
	if !visible {
		return
	}

	b := screen.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	screen.Fill(l.Background)
	barW := w * 0.6
	x, y := (w-barW)/2, h/2
	ebitenutil.DrawRect(screen, x, y, barW, 6, color.RGBA{0x30, 0x30, 0x38, 0xff})
	ebitenutil.DrawRect(screen, x, y, barW*p, 6, l.Bar)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("loading %3.0f%%", p*100), int(x), int(y)-16)
}
