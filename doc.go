// Package traybox is the protocol layer of a collapsible system tray. It
// implements the host side of the [StatusNotifierItem] specification and a
// com.canonical.dbusmenu client, and feeds everything it learns into a
// single-threaded event loop through a [Dispatcher].
//
// # Usage
//
// The protocol layer consists of [Watcher], [Host], [Item] and [MenuClient]:
//   - [Watcher] keeps track of tray items and hosts. One watcher must be
//     present on a D-Bus at a time. [NameOwned] reports whether another
//     process already provides it.
//   - [Host] stores tray items and provides access to them. It requires a
//     watcher service instance to be registered on the session bus (either
//     [Watcher] or an external implementation can be used).
//   - [Item] is the application running in the system tray. It observes the
//     remote object and reports changes as [ItemSignal] values.
//   - [MenuClient] mirrors the item's exported menu into a [scene.Popup].
//
// Every callback and item signal is delivered through the [Dispatcher]
// passed to the constructor, so consumers never see concurrent calls.
//
// The presentation of items lives in the statusicon and aggregator packages.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package traybox
