package traybox

import (
	"fmt"
	"image"
	"image/color"
)

// Icon represents one pixmap of the system tray item icon.
type Icon struct {
	Width  int32
	Height int32

	// Bytes holds ARGB32 pixels in network byte order, row by row.
	Bytes []byte
}

// NewIconFromDBusPixmap returns a new [Icon] from D-Bus pixmap.
//
// Format of pixmap is as follows
//
//	[<width>, <height>, <bytes>]
//
// Where:
//   - <width>: width of the icon (int32)
//   - <height>: height of the icon (int32)
//   - <bytes>: content of the icon ([]byte)
func NewIconFromDBusPixmap(pixmap any) (*Icon, error) {
	data, ok := pixmap.([]any)
	if !ok || len(data) != 3 {
		return nil, fmt.Errorf("invalid pixmap format: expected a slice of 3 elements")
	}

	width, ok := data[0].(int32)
	if !ok {
		return nil, fmt.Errorf("invalid width type: expected int32")
	}

	height, ok := data[1].(int32)
	if !ok {
		return nil, fmt.Errorf("invalid height type: expected int32")
	}

	bytes, ok := data[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid bytes format: expected []byte")
	}

	if width <= 0 || height <= 0 || len(bytes) < int(width)*int(height)*4 {
		return nil, fmt.Errorf("invalid pixmap size %dx%d for %d bytes", width, height, len(bytes))
	}

	return &Icon{
		Width:  width,
		Height: height,
		Bytes:  bytes,
	}, nil
}

// Image converts the icon to an [image.NRGBA].
func (icon *Icon) Image() *image.NRGBA {
	w, h := int(icon.Width), int(icon.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	for i := 0; i < w*h; i++ {
		p := icon.Bytes[i*4 : i*4+4]
		img.SetNRGBA(i%w, i/w, color.NRGBA{R: p[1], G: p[2], B: p[3], A: p[0]})
	}

	return img
}

// IconSet is the list of pixmaps an item offers for one icon, typically in
// several sizes.
type IconSet []*Icon

// NewIconSetFromDBusProperty returns an [IconSet] from the value of an
// a(iiay) property such as IconPixmap. Malformed pixmaps are skipped.
func NewIconSetFromDBusProperty(value any) (*IconSet, error) {
	var pixmaps []any

	switch v := value.(type) {
	case [][]any:
		for _, p := range v {
			pixmaps = append(pixmaps, p)
		}
	case []any:
		pixmaps = v
	default:
		return nil, fmt.Errorf("invalid icon set format: %T", value)
	}

	set := make(IconSet, 0, len(pixmaps))

	for _, pixmap := range pixmaps {
		icon, err := NewIconFromDBusPixmap(pixmap)
		if err != nil {
			continue
		}

		set = append(set, icon)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("icon set is empty")
	}

	return &set, nil
}

// Best returns the smallest icon at least size pixels wide, or the largest
// icon if none is big enough.
func (s *IconSet) Best(size int) *Icon {
	if s == nil || len(*s) == 0 {
		return nil
	}

	var best, largest *Icon

	for _, icon := range *s {
		if largest == nil || icon.Width > largest.Width {
			largest = icon
		}

		if int(icon.Width) >= size && (best == nil || icon.Width < best.Width) {
			best = icon
		}
	}

	if best == nil {
		return largest
	}

	return best
}

func (s *IconSet) equal(other *IconSet) bool {
	if s == nil || other == nil {
		return s == other
	}

	if len(*s) != len(*other) {
		return false
	}

	for i, icon := range *s {
		o := (*other)[i]
		if icon.Width != o.Width || icon.Height != o.Height || string(icon.Bytes) != string(o.Bytes) {
			return false
		}
	}

	return true
}
