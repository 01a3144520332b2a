// Package menu computes on-screen placement for the cat's context menu.
package menu

// Point is a position in viewport pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a width/height pair in viewport pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Place resolves where a popup menu should open for a click at the given
// point. The menu is flipped to the other side of the click on any axis where
// it would overflow the viewport, then clamped so it never starts off-screen.
// A menu larger than the viewport ends up at the origin; that degenerate case
// is accepted as-is.
func Place(click Point, menu Size, viewport Size) Point {
	pos := click

	if click.X+menu.Width > viewport.Width {
		pos.X = click.X - menu.Width
	}
	if click.Y+menu.Height > viewport.Height {
		pos.Y = click.Y - menu.Height
	}

	if pos.X < 0 {
		pos.X = 0
	}
	if pos.Y < 0 {
		pos.Y = 0
	}
	return pos
}
