// Package logging provides opt-in file-based logging with rotation for
// notedex. When the --debug flag is set, structured JSON logs are written
// to ~/.notedex/logs/ for troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
