// Package protocol contains low-level wire helpers shared by the agent
// transports and the development server: reading and writing
// text/event-stream frames.
//
// This package is internal and should not be imported by external code.
// Use the public packages in pkg/ for protocol interactions.
package protocol
