// Package api implements the HTTP REST API and WebSocket server for
// Switchboard Core.
//
// This package provides:
//   - REST endpoints for event submission, the event log, plugin lifecycle,
//     macro management and run history, and named globals
//   - WebSocket hub broadcasting the live event feed and macro run progress
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces and the automation engine.
// Submitted events go straight into the dispatcher, which fans them out to
// handlers and trigger-matching macros; everything the dispatcher delivers
// is mirrored onto the WebSocket feed so connected clients watch the engine
// work in real time.
//
// # Security
//
// Bearer-token authentication is optional and controlled by
// security.auth_required. WebSocket connections use single-use tickets so
// the JWT never appears in a URL.
package api
