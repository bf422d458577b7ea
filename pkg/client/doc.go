// Package client runs agents on behalf of the chat core.
//
// An Agent owns the message list, thread id and shared state of one
// conversation. RunAgent sends them to the agent through a transport and
// dispatches every event of the run, in delivery order, to a Subscriber.
// Tool call arguments are accumulated across TOOL_CALL_ARGS events and
// handed to OnToolCallEnd as a complete ToolCall.
//
// Example usage:
//
//	agent, err := client.New(client.Config{URL: "http://localhost:8003/agent"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	agent.AddMessage(messages.NewUserMessage("Hello"))
//	if err := agent.RunAgent(ctx, client.RunOptions{}, sub); err != nil {
//		log.Fatal(err)
//	}
package client
