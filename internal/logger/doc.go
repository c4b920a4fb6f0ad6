// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - convenience functions (Infof, WarnKV, ErrorKV, etc.).
//
// Commands keep stdout for their own output (for example the item table
// printed by `appcast-updater list`), so diagnostics never interleave with it.
package logger
