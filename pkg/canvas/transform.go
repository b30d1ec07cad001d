// Package canvas holds the interaction core of the workflow builder: the
// coordinate transform, drag state machine, selection, palette, inspector,
// renderer and test-run bridge, tied together by Session. It has no
// terminal or network code of its own.
package canvas

import (
	"math"

	"github.com/dshills/flowcanvas/pkg/workflow"
)

// Zoom limits and step used when none are configured
const (
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 2.0
	ZoomStep       = 0.1
)

// Point is a 2-D coordinate, in screen or canvas space depending on use
type Point struct {
	X, Y float64
}

// Add returns p + q
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p * f
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Position converts a canvas-space point to a node position
func (p Point) Position() workflow.Position { return workflow.Position{X: p.X, Y: p.Y} }

// PointOf converts a node position to a canvas-space point
func PointOf(pos workflow.Position) Point { return Point{X: pos.X, Y: pos.Y} }

// Rect is an axis-aligned rectangle; for the canvas element it is the
// bounding box in screen space
type Rect struct {
	Left, Top, Width, Height float64
}

// Center returns the midpoint of r
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Left+r.Width && p.Y >= r.Top && p.Y <= r.Top+r.Height
}

// Viewport is the pan and zoom applied to the canvas
type Viewport struct {
	Zoom    float64
	Pan     Point
	MinZoom float64
	MaxZoom float64
}

// NewViewport returns an identity viewport with the given zoom limits.
// Non-positive or inverted limits fall back to the defaults.
func NewViewport(minZoom, maxZoom float64) Viewport {
	if minZoom <= 0 || maxZoom <= 0 || minZoom > maxZoom {
		minZoom, maxZoom = DefaultMinZoom, DefaultMaxZoom
	}
	return Viewport{Zoom: 1, MinZoom: minZoom, MaxZoom: maxZoom}
}

// ScreenToCanvas maps a screen point to canvas space. Node placement and
// drag math both go through here.
func ScreenToCanvas(p Point, r Rect, v Viewport) Point {
	return Point{
		X: (p.X - r.Left - v.Pan.X) / v.Zoom,
		Y: (p.Y - r.Top - v.Pan.Y) / v.Zoom,
	}
}

// CanvasToScreen is the inverse of ScreenToCanvas
func CanvasToScreen(c Point, r Rect, v Viewport) Point {
	return Point{
		X: c.X*v.Zoom + v.Pan.X + r.Left,
		Y: c.Y*v.Zoom + v.Pan.Y + r.Top,
	}
}

// SetZoom sets the zoom, clamped to the viewport limits
func (v *Viewport) SetZoom(z float64) {
	v.Zoom = math.Max(v.MinZoom, math.Min(v.MaxZoom, z))
	// keep 0.1 steps exact so repeated zooming does not drift
	v.Zoom = math.Round(v.Zoom*1e6) / 1e6
}

// ZoomIn increases the zoom by one step
func (v *Viewport) ZoomIn() { v.SetZoom(v.Zoom + ZoomStep) }

// ZoomOut decreases the zoom by one step
func (v *Viewport) ZoomOut() { v.SetZoom(v.Zoom - ZoomStep) }

// PanBy moves the canvas by a screen-space delta
func (v *Viewport) PanBy(dx, dy float64) {
	v.Pan.X += dx
	v.Pan.Y += dy
}

// Reset returns to zoom 1 and no pan
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Pan = Point{}
}
