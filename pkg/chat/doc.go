// Package chat is the conversation core of the site operator widget.
//
// A Service owns the message list of the active thread, the host
// application context and state, suggested prompts and the conversation
// list. SendMessage appends a message, runs the agent through a
// client.Agent and applies every streamed event with a subscriber that
// drives a RunMachine (Idle, AwaitingFirstToken, Streaming), feeds
// generative UI to the a2ui.Service and hands host actions to the
// portal.Bridge without blocking the stream.
//
//	bridge := portal.New()
//	agent, _ := client.New(client.Config{URL: "http://localhost:8080/agent"})
//	svc, _ := chat.New(chat.Config{Agent: agent, Bridge: bridge})
//	_ = svc.Initialize(ctx)
//	err := svc.SendMessage(ctx, "Show me my open deals", messages.RoleUser)
//	for _, m := range svc.VisibleMessages() {
//		fmt.Println(m.Role, m.Content)
//	}
package chat
