// Package httpmw provides HTTP middleware for the site server.
//
// httpserver.NewHandler composes them (outermost first): security headers,
// panic recovery, request ID, client IP resolution, rate limiting, OTel
// tracing, trace headers, metrics, request-scoped logging, then the chi
// router with compression, route annotation, access log and body limits.
//
// Query strings and user supplied headers are kept out of logs.
package httpmw
