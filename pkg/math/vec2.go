package math

// Vec2 is a 2D vector. Texture coordinates use X as U and Y as V.
type Vec2 struct {
	X, Y float64
}
