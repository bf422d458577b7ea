// Package testutil provides scripted transports and event fixtures for
// tests of the chat core.
package testutil
