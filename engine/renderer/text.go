package renderer

import (
	"fmt"
	"path/filepath"

	"github.com/fzipp/bmfont"

	"github.com/vivid-engine/vivid/engine/core"
)

// Font is a loaded AngelCode bitmap font: the glyph descriptor plus one
// texture per atlas page.
type Font struct {
	desc  *bmfont.Descriptor
	pages map[int]*Texture
}

// LoadFont loads a .fnt descriptor and its page images, which must sit
// next to the descriptor file.
func (r *Renderer) LoadFont(path string) (*Font, error) {
	if r == nil || r.sc == nil {
		core.LogError("LoadFont called on an uninitialized renderer")
		return nil, errNotInitialized
	}

	desc, err := bmfont.LoadDescriptor(path)
	if err != nil {
		core.LogError("failed to load font %s: %s", path, err)
		return nil, err
	}

	f := &Font{
		desc:  desc,
		pages: make(map[int]*Texture, len(desc.Pages)),
	}
	dir := filepath.Dir(path)
	for id, page := range desc.Pages {
		tex, err := r.LoadTexture(filepath.Join(dir, page.File))
		if err != nil {
			r.DestroyFont(f)
			return nil, fmt.Errorf("load font page %s: %w", page.File, err)
		}
		f.pages[id] = tex
	}
	return f, nil
}

// DestroyFont releases the font's page textures.
func (r *Renderer) DestroyFont(f *Font) {
	if r == nil || f == nil {
		return
	}
	for _, tex := range f.pages {
		r.DestroyTexture(tex)
	}
	f.pages = nil
}

// LineHeight returns the vertical distance between text baselines in
// pixels.
func (f *Font) LineHeight() float32 {
	return float32(f.desc.Common.LineHeight)
}

// MeasureText returns the pixel width of a single line of text.
func (f *Font) MeasureText(text string) float32 {
	var width float32
	var prev rune = -1
	for _, c := range text {
		ch, ok := f.desc.Chars[c]
		if !ok {
			prev = -1
			continue
		}
		if prev >= 0 {
			if k, ok := f.desc.Kerning[bmfont.CharPair{First: prev, Second: c}]; ok {
				width += float32(k.Amount)
			}
		}
		width += float32(ch.XAdvance)
		prev = c
	}
	return width
}

// DrawText draws a string with its top-left corner at (x, y), one
// textured quad per glyph. Newlines advance by the font's line height.
func (r *Renderer) DrawText(f *Font, x, y float32, text string) {
	if !r.canDraw("DrawText") || f == nil {
		return
	}

	penX, penY := x, y
	var prev rune = -1
	for _, c := range text {
		if c == '\n' {
			penX = x
			penY += f.LineHeight()
			prev = -1
			continue
		}
		ch, ok := f.desc.Chars[c]
		if !ok {
			prev = -1
			continue
		}
		if prev >= 0 {
			if k, ok := f.desc.Kerning[bmfont.CharPair{First: prev, Second: c}]; ok {
				penX += float32(k.Amount)
			}
		}
		page, ok := f.pages[ch.Page]
		if !ok {
			prev = c
			continue
		}
		if ch.Width > 0 && ch.Height > 0 {
			r.DrawTexturePart(page,
				penX+float32(ch.XOffset), penY+float32(ch.YOffset),
				1, 1, 0, 0, 0,
				float32(ch.X), float32(ch.Y), float32(ch.Width), float32(ch.Height))
		}
		penX += float32(ch.XAdvance)
		prev = c
	}
}
