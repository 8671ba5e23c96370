// Package device defines the contract the bridge consumes from the miio
// device facade.
//
// A Device has a stable id, an immutable set of capability tags, optional
// children and change events. Property access is split into one small
// interface per facet (Thermometer, Switchable, Colorable, ...) so the
// capability wiring can ask for exactly what it needs with a type assertion.
//
// Implementations may invoke event handlers from any goroutine, but must
// invoke them for one device in the order the events were emitted.
package device
