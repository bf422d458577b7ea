/*
Package messages defines the chat message model shared by the agent client,
the chat service and the conversation store.

# Message Roles

A Message carries one of the roles user, assistant, system, developer, tool
or activity. Text roles use Content. Activity messages hold structured JSON
in Data together with an ActivityType such as "a2ui" or "navigation".

	user := messages.NewUserMessage("Show me my leads")
	act, err := messages.NewActivityMessage("navigation", map[string]string{"toPath": "/leads"})

# Wire Format

ToWire and FromWire convert to the events.Message shape sent to agents in
RunAgentInput and received in MESSAGES_SNAPSHOT events.

# History

History is an ordered, id-indexed and concurrency-safe message list. Upsert
replaces a message in place when its id is known and appends otherwise,
which is how streamed assistant text and activity snapshots are merged.

	h := messages.NewHistory()
	h.Upsert(messages.NewAssistantMessage("Hel"))
	h.Update(id, func(m *messages.Message) { m.Content += "lo" })
*/
package messages
