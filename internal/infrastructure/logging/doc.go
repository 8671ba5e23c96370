// Package logging builds the bridge's log/slog logger.
//
// Entries carry service=miiobridge and the build version. The format (json
// or text), level and output stream (stdout or stderr) come from the
// logging section of the configuration. Before configuration is loaded,
// Default gives a JSON info logger; tests use Discard.
//
// Gateway tokens, the HomeKit pin and broker credentials must never be
// logged.
package logging
