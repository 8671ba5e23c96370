// Package binding keeps accessory characteristics and device properties in
// sync.
//
// A binding mirrors one device property in a cached value. Host reads are
// answered from the cache. Host writes update the cache optimistically and
// complete once the device write settles; a failed write is reported to the
// host but the cache is not rolled back. Device pushes always overwrite the
// cache and the characteristic. One device read seeds the cache when the
// binding is created; its result is dropped if a push or write was applied
// while it was in flight.
//
// Every function in this package must be called on the Env's loop, and every
// handler it registers runs there.
package binding
