package canvas

// SetZoomForTest sets the viewport zoom directly
func (s *Session) SetZoomForTest(z float64) {
	s.viewport.SetZoom(z)
}
