package scene

// Surface is anything that can be shown as a tray icon.
//
// A surface is renderable when Node returns a live node. Implementations
// backed by a pointer should return nil from a nil receiver.
type Surface interface {
	Node() *Node
}

// Pixmap is raw ARGB32 image data in network byte order.
type Pixmap struct {
	Width  int
	Height int
	Data   []byte
}

// Image is a themed icon or pixmap surface.
type Image struct {
	node     *Node
	iconName string
	size     int
	pixmap   *Pixmap
}

// NewImage returns an image showing the themed icon iconName at size pixels.
func NewImage(iconName string, size int) *Image {
	img := &Image{
		node:     NewNode("icon"),
		iconName: iconName,
		size:     size,
	}

	img.node.SetSize(float64(size), float64(size))
	return img
}

func (img *Image) Node() *Node {
	if img == nil {
		return nil
	}

	return img.node
}

func (img *Image) IconName() string {
	return img.iconName
}

func (img *Image) SetIconName(name string) {
	img.iconName = name
}

func (img *Image) IconSize() int {
	return img.size
}

func (img *Image) SetIconSize(size int) {
	img.size = size
	img.node.SetSize(float64(size), float64(size))
}

// Pixmap returns the pixel data shown instead of the themed icon, if any.
func (img *Image) Pixmap() *Pixmap {
	return img.pixmap
}

func (img *Image) SetPixmap(p *Pixmap) {
	img.pixmap = p
}

// Label is a text node.
type Label struct {
	node *Node
	text string
}

func NewLabel(text string) *Label {
	return &Label{node: NewNode("label"), text: text}
}

func (l *Label) Node() *Node {
	if l == nil {
		return nil
	}

	return l.node
}

func (l *Label) Text() string {
	return l.text
}

func (l *Label) SetText(text string) {
	l.text = text
}
