// Package middlewares holds the net/http middlewares shared by the HTTP API:
// request ID propagation into logs and panic recovery.
package middlewares
