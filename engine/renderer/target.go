package renderer

// Target is the logical destination of drawing commands: either the
// screen's current presentable image or an off-screen texture.
//
// Target equality is identity, not structure: two targets are the same
// only when they reference the exact same *Texture (or are both the
// screen). Switching to a different texture of identical dimensions is
// still a real switch.
type Target struct {
	tex *Texture
}

// Screen returns the target addressing the current presentable image.
func Screen() Target {
	return Target{}
}

// TextureTarget returns a target drawing into the given off-screen
// texture. The texture must have been created with CreateTexture.
func TextureTarget(t *Texture) Target {
	return Target{tex: t}
}

// IsScreen reports whether the target is the screen.
func (t Target) IsScreen() bool {
	return t.tex == nil
}

// Equal reports target identity.
func (t Target) Equal(o Target) bool {
	return t.tex == o.tex
}
