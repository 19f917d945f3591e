package traybox

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/shelepuginivan/traybox/internal/signal"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

type ItemCategory string

// StatusNotifierItem categories.
const (
	// The item describes the status of a generic application, for instance the
	// current state of a media player.
	ItemCategoryApplicationStatus ItemCategory = "ApplicationStatus"

	// The item describes the status of communication oriented applications, like
	// an instant messenger or an email client.
	ItemCategoryCommunications ItemCategory = "Communications"

	// The item describes services of the system not seen as a stand alone
	// application by the user, such as an indicator for the activity of a disk
	// indexing service.
	ItemCategorySystemServices ItemCategory = "SystemServices"

	// The item describes the state and control of a particular hardware, such as
	// an indicator of the battery charge or sound card volume control.
	ItemCategoryHardware ItemCategory = "Hardware"
)

type ItemStatus string

// StatusNotifierItem statuses.
const (
	// The item doesn't convey important information to the user, it can be
	// considered an "idle" status and is likely that visualizations will choose
	// to hide it.
	ItemStatusPassive ItemStatus = "Passive"

	// The item is active, is more important that the item will be shown in some
	// way to the user.
	ItemStatusActive ItemStatus = "Active"

	// The item carries really important information for the user, such as battery
	// charge running out and is wants to incentive the direct user intervention.
	// Visualizations should emphasize in some way the items with NeedsAttention
	// status.
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
)

// ParseItemStatus maps a Status property value to an [ItemStatus]. Unknown
// values are treated as active.
func ParseItemStatus(s string) ItemStatus {
	switch s {
	case "Passive":
		return ItemStatusPassive
	case "NeedsAttention":
		return ItemStatusNeedsAttention
	default:
		return ItemStatusActive
	}
}

func parseItemCategory(s string) ItemCategory {
	switch s {
	case "Communications":
		return ItemCategoryCommunications
	case "SystemServices":
		return ItemCategorySystemServices
	case "Hardware":
		return ItemCategoryHardware
	default:
		return ItemCategoryApplicationStatus
	}
}

// ItemSignal is a change notification emitted by [Item].
type ItemSignal int

const (
	// The item finished loading its properties.
	SignalReady ItemSignal = iota

	// The icon, overlay icon or attention icon changed.
	SignalIcon

	// The menu object path changed.
	SignalMenu

	// The inline text label changed.
	SignalLabel

	// The status changed.
	SignalStatus

	// The owner of the bus name was replaced and every property was reloaded.
	SignalReset

	// Title or Id changed.
	SignalAccessibleName

	// The item went away. No other signal follows.
	SignalDestroy
)

var itemSignalNames = [...]string{
	SignalReady:          "ready",
	SignalIcon:           "icon",
	SignalMenu:           "menu",
	SignalLabel:          "label",
	SignalStatus:         "status",
	SignalReset:          "reset",
	SignalAccessibleName: "accessible-name",
	SignalDestroy:        "destroy",
}

func (s ItemSignal) String() string {
	if int(s) < len(itemSignalNames) {
		return itemSignalNames[s]
	}

	return fmt.Sprintf("ItemSignal(%d)", int(s))
}

const (
	getProperty      = "org.freedesktop.DBus.Properties.Get"
	getAllProperties = "org.freedesktop.DBus.Properties.GetAll"
)

// itemSignalMembers are the StatusNotifierItem signals that invalidate
// properties.
var itemSignalMembers = []string{
	"NewTitle",
	"NewToolTip",
	"NewStatus",
	"NewIcon",
	"NewOverlayIcon",
	"NewAttentionIcon",
	"NewMenu",
	"XAyatanaNewLabel",
}

// itemProps is a snapshot of the remote properties of an item.
type itemProps struct {
	ID                  string
	Title               string
	Tooltip             string
	Category            ItemCategory
	Status              ItemStatus
	WindowID            uint32
	IconName            string
	IconThemePath       string
	IconPixmap          *IconSet
	OverlayIconName     string
	OverlayIconPixmap   *IconSet
	AttentionIconName   string
	AttentionIconPixmap *IconSet
	AttentionMovieName  string
	IsMenu              bool
	MenuPath            string
	Label               string
	LabelGuide          string
}

// parseItemProps reads the reply of GetAll on the StatusNotifierItem
// interface. Missing or malformed properties keep their zero value.
func parseItemProps(all map[string]dbus.Variant) itemProps {
	p := itemProps{
		Category: ItemCategoryApplicationStatus,
		Status:   ItemStatusActive,
	}

	str := func(key string) string {
		v, ok := all[key]
		if !ok {
			return ""
		}

		switch s := v.Value().(type) {
		case string:
			return s
		case dbus.ObjectPath:
			return string(s)
		}

		return ""
	}

	icons := func(key string) *IconSet {
		v, ok := all[key]
		if !ok {
			return nil
		}

		set, err := NewIconSetFromDBusProperty(v.Value())
		if err != nil {
			return nil
		}

		return set
	}

	p.ID = str("Id")
	p.Title = str("Title")
	p.Category = parseItemCategory(str("Category"))
	p.Status = ParseItemStatus(str("Status"))
	p.IconName = str("IconName")
	p.IconThemePath = str("IconThemePath")
	p.IconPixmap = icons("IconPixmap")
	p.OverlayIconName = str("OverlayIconName")
	p.OverlayIconPixmap = icons("OverlayIconPixmap")
	p.AttentionIconName = str("AttentionIconName")
	p.AttentionIconPixmap = icons("AttentionIconPixmap")
	p.AttentionMovieName = str("AttentionMovieName")
	p.MenuPath = str("Menu")
	p.Label = str("XAyatanaLabel")
	p.LabelGuide = str("XAyatanaLabelGuide")

	if p.MenuPath == "/" {
		p.MenuPath = ""
	}

	if v, ok := all["ItemIsMenu"]; ok {
		p.IsMenu, _ = v.Value().(bool)
	}

	if v, ok := all["WindowId"]; ok {
		switch id := v.Value().(type) {
		case int32:
			p.WindowID = uint32(id)
		case uint32:
			p.WindowID = id
		}
	}

	// Format of tooltip is as follows
	//
	//  [<icon-name>, <icon>, <tooltip>, <description>]
	//
	// We are interested in the 3rd item, as it is a text representation of the
	// tooltip.
	if v, ok := all["ToolTip"]; ok {
		if value, ok := v.Value().([]any); ok && len(value) >= 3 {
			p.Tooltip, _ = value[2].(string)
		}
	}

	return p
}

// Item represents system tray item and implements [StatusNotifierItem].
//
// Properties are read from the event loop. The item refreshes them when the
// remote object announces changes and reports each change as an
// [ItemSignal].
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierItem/
type Item struct {
	conn       *dbus.Conn
	object     dbus.BusObject
	busName    string
	objectPath dbus.ObjectPath
	dispatch   Dispatcher
	logger     *slog.Logger
	signals    chan *dbus.Signal

	mu    sync.Mutex
	owner string

	props     itemProps
	ready     bool
	destroyed bool
	handlers  signal.Signal[ItemSignal]
}

func newItem(busName string, objectPath dbus.ObjectPath, dispatch Dispatcher) *Item {
	return &Item{
		busName:    busName,
		objectPath: objectPath,
		owner:      busName,
		dispatch:   dispatch,
		logger:     slog.Default().With("component", "sni", "item", busName+string(objectPath)),
	}
}

// NewItem returns new [Item] from its D-Bus name.
func NewItem(conn *dbus.Conn, busName string, dispatch Dispatcher) (*Item, error) {
	return NewItemWithObjectPath(conn, busName, StatusNotifierItemPath, dispatch)
}

// NewItemWithObjectPath returns new [Item] from its D-Bus name and allows to
// specify path of the D-Bus object.
//
// It blocks while the properties are loaded and must not be called from the
// event loop.
func NewItemWithObjectPath(conn *dbus.Conn, busName string, objectPath string, dispatch Dispatcher) (*Item, error) {
	item := newItem(busName, dbus.ObjectPath(objectPath), dispatch)
	item.conn = conn
	item.object = conn.Object(busName, item.objectPath)
	item.signals = make(chan *dbus.Signal, 128)

	// Check whether properties can be retrieved.
	call := item.object.Call(getProperty, 0, StatusNotifierItemInterface, "Title")
	if call.Err != nil {
		return nil, fmt.Errorf("failed to resolve item: %w", call.Err)
	}

	if owner, err := nameOwner(conn, busName); err == nil {
		item.owner = owner
	}

	props, err := item.fetchProps()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item: %w", err)
	}

	item.props = props
	item.ready = true

	// Subscribe to update signals.
	// This is required to update fields when necessary.
	if err := item.subscribe(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to item signals: %w", err)
	}

	return item, nil
}

// NewItemFromDBusSignal returns new [Item] from D-Bus signal.
//
// It is intended to be used with signal
// org.kde.StatusNotifierWatcher.StatusNotifierItemRegistered.
func NewItemFromDBusSignal(conn *dbus.Conn, signal *dbus.Signal, dispatch Dispatcher) (*Item, error) {
	busName, objectPath, err := uniqueNameAndPathFromDBusSignal(signal)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item: %w", err)
	}

	return NewItemWithObjectPath(conn, busName, objectPath, dispatch)
}

// Connect registers fn to run on every signal of the item. It returns a
// function that disconnects fn.
func (item *Item) Connect(fn func(ItemSignal)) func() {
	return item.handlers.Subscribe(fn)
}

// UniqueID returns the bus name followed by the object path.
func (item *Item) UniqueID() string {
	return item.busName + string(item.objectPath)
}

func (item *Item) BusName() string {
	return item.busName
}

func (item *Item) ObjectPath() string {
	return string(item.objectPath)
}

// IsReady reports whether the properties of the item were loaded.
func (item *Item) IsReady() bool {
	return item.ready && !item.destroyed
}

func (item *Item) IsDestroyed() bool {
	return item.destroyed
}

// ID is the unique identifier for the application, such as its name.
func (item *Item) ID() string {
	return item.props.ID
}

// Title is the name that describes the application.
func (item *Item) Title() string {
	return item.props.Title
}

// Tooltip is extra information that can be visualized by a tooltip.
func (item *Item) Tooltip() string {
	return item.props.Tooltip
}

func (item *Item) Category() ItemCategory {
	return item.props.Category
}

func (item *Item) Status() ItemStatus {
	return item.props.Status
}

// WindowID is a windowing-system dependent identifier.
func (item *Item) WindowID() uint32 {
	return item.props.WindowID
}

// IsMenu reports whether the item only supports the context menu.
func (item *Item) IsMenu() bool {
	return item.props.IsMenu
}

// MenuPath is the D-Bus path to an object which implements the
// com.canonical.dbusmenu interface. It is empty if the item has no menu.
func (item *Item) MenuPath() string {
	return item.props.MenuPath
}

// Label is the text shown next to the icon.
func (item *Item) Label() string {
	return item.props.Label
}

// LabelGuide is the longest label the item expects to show, used to reserve
// space.
func (item *Item) LabelGuide() string {
	return item.props.LabelGuide
}

// AccessibleName returns Title, falling back to Id.
func (item *Item) AccessibleName() string {
	if item.props.Title != "" {
		return item.props.Title
	}

	return item.props.ID
}

// IconName returns the [Freedesktop-compliant] icon name to show. Items that
// need attention show their attention icon when they have one.
//
// [Freedesktop-compliant]: https://specifications.freedesktop.org/icon-naming-spec/latest/
func (item *Item) IconName() string {
	if item.props.Status == ItemStatusNeedsAttention && item.props.AttentionIconName != "" {
		return item.props.AttentionIconName
	}

	return item.props.IconName
}

// IconPixmap returns the pixmaps matching [Item.IconName].
func (item *Item) IconPixmap() *IconSet {
	if item.props.Status == ItemStatusNeedsAttention && item.props.AttentionIconPixmap != nil {
		return item.props.AttentionIconPixmap
	}

	return item.props.IconPixmap
}

// IconThemePath is an additional path for the icon theme lookup.
func (item *Item) IconThemePath() string {
	return item.props.IconThemePath
}

// OverlayIconName is an icon to draw on top of the main icon.
func (item *Item) OverlayIconName() string {
	return item.props.OverlayIconName
}

func (item *Item) AttentionMovieName() string {
	return item.props.AttentionMovieName
}

// ContextMenu asks the status notifier item to show a context menu.
//
// This is typically a consequence of user input, such as mouse right click
// over the graphical representation of the item.
//
// The x and y parameters are in screen coordinates and is to be considered a
// hint to the item about where to show the context menu.
func (item *Item) ContextMenu(x, y int) error {
	return item.object.Call(
		StatusNotifierItemInterface+".ContextMenu",
		0,
		int32(x), int32(y),
	).Err
}

// Activate asks the status notifier item for activation. The application will
// perform any task is considered appropriate as an activation request.
//
// This is typically a consequence of user input, such as mouse left click over
// the graphical representation of the item.
//
// The x and y parameters are in screen coordinates and is to be considered a
// hint to the item where to show eventual windows (if any).
func (item *Item) Activate(x, y int) error {
	return item.object.Call(
		StatusNotifierItemInterface+".Activate",
		0,
		int32(x), int32(y),
	).Err
}

// SecondaryActivate is to be considered a secondary and less important form of
// activation compared to Activate.
//
// This is typically a consequence of user input, such as mouse middle click
// over the graphical representation of the item.
func (item *Item) SecondaryActivate(x, y int) error {
	return item.object.Call(
		StatusNotifierItemInterface+".SecondaryActivate",
		0,
		int32(x), int32(y),
	).Err
}

// Scroll emits a scroll event on the status notifier item.
//
// The delta parameter represent the amount of scroll. The orientation
// parameter represent orientation of the scroll request and its valid values
// are "horizontal" and "vertical".
func (item *Item) Scroll(delta int, orientation string) error {
	return item.object.Call(
		StatusNotifierItemInterface+".Scroll",
		0,
		int32(delta), orientation,
	).Err
}

// SecondaryActivateAt asynchronously requests secondary activation. The
// Ayatana variant carrying the event timestamp is tried first.
func (item *Item) SecondaryActivateAt(timestamp uint32, x, y int) {
	go func() {
		err := item.object.Call(
			StatusNotifierItemInterface+".XAyatanaSecondaryActivate",
			0,
			timestamp,
		).Err
		if err == nil {
			return
		}

		if err := item.SecondaryActivate(x, y); err != nil {
			item.logger.Warn("secondary activation failed", "error", err)
		}
	}()
}

// ScrollDelta asynchronously forwards a smooth scroll, one call per non-zero
// axis.
func (item *Item) ScrollDelta(dx, dy int) {
	go func() {
		if dx != 0 {
			if err := item.Scroll(dx, "horizontal"); err != nil {
				item.logger.Warn("horizontal scroll failed", "error", err)
			}
		}

		if dy != 0 {
			if err := item.Scroll(dy, "vertical"); err != nil {
				item.logger.Warn("vertical scroll failed", "error", err)
			}
		}
	}()
}

// CheckAlive asynchronously asks the bus whether the item's name still has
// an owner. If it does not, the item is destroyed. done runs on the event
// loop with the error of the query, if any.
func (item *Item) CheckAlive(done func(error)) {
	go func() {
		owned, err := NameOwned(item.conn, item.busName)

		item.dispatch.run(func() {
			if err == nil && !owned {
				item.logger.Debug("item name lost its owner")
				item.destroy()
			}

			if done != nil {
				done(err)
			}
		})
	}()
}

// apply replaces the properties of the item and emits a signal per changed
// aspect. The first call on an item that is not ready emits only
// [SignalReady].
func (item *Item) apply(next itemProps) {
	if item.destroyed {
		return
	}

	prev := item.props
	item.props = next

	if !item.ready {
		item.ready = true
		item.handlers.Emit(SignalReady)
		return
	}

	for _, sig := range diffItemProps(prev, next) {
		item.handlers.Emit(sig)
	}
}

// reset replaces every property after the name owner changed.
func (item *Item) reset(next itemProps) {
	if item.destroyed {
		return
	}

	prev := item.props
	item.props = next
	item.handlers.Emit(SignalReset)

	for _, sig := range diffItemProps(prev, next) {
		if sig == SignalIcon || sig == SignalMenu {
			item.handlers.Emit(sig)
		}
	}
}

func diffItemProps(prev, next itemProps) []ItemSignal {
	var signals []ItemSignal

	if prev.IconName != next.IconName ||
		prev.AttentionIconName != next.AttentionIconName ||
		prev.OverlayIconName != next.OverlayIconName ||
		prev.IconThemePath != next.IconThemePath ||
		!prev.IconPixmap.equal(next.IconPixmap) ||
		!prev.AttentionIconPixmap.equal(next.AttentionIconPixmap) ||
		!prev.OverlayIconPixmap.equal(next.OverlayIconPixmap) ||
		(prev.Status != next.Status && (next.AttentionIconName != "" || next.AttentionIconPixmap != nil)) {
		signals = append(signals, SignalIcon)
	}

	if prev.MenuPath != next.MenuPath {
		signals = append(signals, SignalMenu)
	}

	if prev.Label != next.Label || prev.LabelGuide != next.LabelGuide {
		signals = append(signals, SignalLabel)
	}

	if prev.Status != next.Status {
		signals = append(signals, SignalStatus)
	}

	if prev.Title != next.Title || prev.ID != next.ID {
		signals = append(signals, SignalAccessibleName)
	}

	return signals
}

// destroy emits [SignalDestroy] once and drops every handler.
func (item *Item) destroy() {
	if item.destroyed {
		return
	}

	item.destroyed = true

	if item.conn != nil {
		item.close()
	}

	item.handlers.Emit(SignalDestroy)
	item.handlers.Clear()
}

func (item *Item) fetchProps() (itemProps, error) {
	var all map[string]dbus.Variant

	err := item.object.Call(getAllProperties, 0, StatusNotifierItemInterface).Store(&all)
	if err != nil {
		return itemProps{}, fmt.Errorf("get item properties: %w", err)
	}

	return parseItemProps(all), nil
}

func (item *Item) currentOwner() string {
	item.mu.Lock()
	defer item.mu.Unlock()

	return item.owner
}

func (item *Item) setOwner(owner string) {
	item.mu.Lock()
	defer item.mu.Unlock()

	item.owner = owner
}

// close removes signal handlers associated with this item.
//
// This method must be called when item is being unregistered from the system tray.
func (item *Item) close() {
	for _, member := range itemSignalMembers {
		_ = item.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(StatusNotifierItemInterface),
			dbus.WithMatchMember(member),
			dbus.WithMatchSender(item.busName),
		)
	}

	_ = item.conn.RemoveMatchSignal(nameOwnerChangedMatch(item.busName)...)

	item.conn.RemoveSignal(item.signals)
	close(item.signals)
}

func (item *Item) subscribe() error {
	for _, member := range itemSignalMembers {
		if err := item.conn.AddMatchSignal(
			dbus.WithMatchInterface(StatusNotifierItemInterface),
			dbus.WithMatchMember(member),
			dbus.WithMatchSender(item.busName),
		); err != nil {
			return err
		}
	}

	if err := item.conn.AddMatchSignal(nameOwnerChangedMatch(item.busName)...); err != nil {
		return err
	}

	item.conn.Signal(item.signals)

	go func() {
		for signal := range item.signals {
			item.handleSignal(signal)
		}
	}()

	return nil
}

// handleSignal runs on the signal goroutine. Property reads happen here; the
// results are applied on the event loop.
func (item *Item) handleSignal(signal *dbus.Signal) {
	if signal.Name == nameOwnerChanged {
		item.handleNameOwnerChanged(signal)
		return
	}

	if !strings.HasPrefix(signal.Name, StatusNotifierItemInterface+".") {
		return
	}

	if signal.Sender != item.currentOwner() || signal.Path != item.objectPath {
		return
	}

	props, err := item.fetchProps()
	if err != nil {
		item.logger.Debug("failed to refresh item", "signal", signal.Name, "error", err)
		return
	}

	item.dispatch.run(func() { item.apply(props) })
}

func (item *Item) handleNameOwnerChanged(signal *dbus.Signal) {
	name, _, newOwner, ok := parseNameOwnerChanged(signal)
	if !ok || name != item.busName {
		return
	}

	if newOwner == "" {
		item.dispatch.run(item.destroy)
		return
	}

	if newOwner == item.currentOwner() {
		return
	}

	item.setOwner(newOwner)

	props, err := item.fetchProps()
	if err != nil {
		item.logger.Warn("failed to reload item after owner change", "error", err)
		item.dispatch.run(item.destroy)
		return
	}

	item.dispatch.run(func() { item.reset(props) })
}

// uniqueNameAndPathFromDBusSignal retrieves unique name of the StatusNotifierItem
// service from D-Bus signal.
func uniqueNameAndPathFromDBusSignal(signal *dbus.Signal) (string, string, error) {
	if len(signal.Body) < 1 {
		return "", "", fmt.Errorf("signal body is empty")
	}

	itemName, ok := signal.Body[0].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid format of signal body")
	}

	return uniqueNameAndPathFromItemName(itemName)
}

// uniqueNameAndPathFromItemName returns unique name and object path of the
// StatusNotifierItem service from its item name. The returned object path
// contains /.
//
// Format of item name is "<uniqueName>/<objectPath>",
// e.g. ":1.185/StatusNotifierItem".
func uniqueNameAndPathFromItemName(itemName string) (string, string, error) {
	uniqueName, objectPath, ok := strings.Cut(itemName, "/")
	if uniqueName == "" {
		return "", "", fmt.Errorf("item name %q has no bus name", itemName)
	}

	if !ok || objectPath == "" {
		return uniqueName, StatusNotifierItemPath, nil
	}

	return uniqueName, "/" + objectPath, nil
}
