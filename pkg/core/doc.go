// Package core provides the foundational types shared by every layer of the
// site-operator SDK.
//
// It defines the run request exchanged with a remote agent, the context items
// forwarded with each run, and the error types returned across the SDK:
//   - sentinel errors for common failure modes (no portal, illegal state transitions, ...)
//   - ConfigError for invalid configuration values
//   - ProtocolError and TransportError for failures talking to the agent
//
// Example usage:
//
//	import "github.com/site-operator/go-sdk/pkg/core"
//
//	item, err := core.NewContextItem("Current date and time", time.Now().Format(time.RFC1123))
//	if err != nil {
//		return err
//	}
//	input := &core.RunAgentInput{ThreadID: threadID, RunID: runID, Context: []core.ContextItem{item}}
package core
