// Package utils provides shared internal utilities.
//
// Observers is the callback list behind every "subscribe" style API in the
// SDK (portal registration, processor updates, chat state changes).
//
// This package is internal and should not be imported by external code.
package utils
