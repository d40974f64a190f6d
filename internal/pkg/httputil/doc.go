// Package httputil holds the JSON response helpers shared by the landing
// API handlers, so every endpoint answers with the same error envelope.
package httputil
