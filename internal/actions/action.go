// Package actions defines the tagged variants a user-declared
// ActionGenerator can propose each tick and the host applies verbatim: the
// core validates structure and passes these through unchanged, it never
// interprets what a click or keypress "means".
package actions

// Point is a normalized or pixel coordinate, interpretation owned by the
// host.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is the sum type of every proposal an ActionGenerator may return.
type Action interface {
	isAction()
}

// Back navigates the host one step back in its history.
type Back struct{}

func (Back) isAction() {}

// Reload reloads the host's current page.
type Reload struct{}

func (Reload) isAction() {}

// Click targets an element by name, optionally disambiguated by its text
// content, at a specific point within it.
type Click struct {
	Name    string
	Content string // optional; empty means "any matching element"
	Point   Point
}

func (Click) isAction() {}

// TypeText sends keystrokes with a per-character delay.
type TypeText struct {
	Text    string
	DelayMS uint64
}

func (TypeText) isAction() {}

// PressKey sends a single keycode.
type PressKey struct {
	Code uint8
}

func (PressKey) isAction() {}

// ScrollUp scrolls the given origin element up by distance.
type ScrollUp struct {
	Origin   string
	Distance float64
}

func (ScrollUp) isAction() {}

// ScrollDown scrolls the given origin element down by distance.
type ScrollDown struct {
	Origin   string
	Distance float64
}

func (ScrollDown) isAction() {}
