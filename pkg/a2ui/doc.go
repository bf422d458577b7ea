// Package a2ui handles generative UI payloads (A2UI v0.8) embedded in chat
// messages.
//
// The canonical wire contract is an ACTIVITY_SNAPSHOT event with activity
// type "a2ui" whose content is one canonical message or an object of the
// form {"operations": [...]}. Normalize is the single boundary where older
// shapes are accepted: arguments of a2ui_* tool calls, tool messages
// wrapping an a2ui activity, snake_case keys, {"messages": [...]} lists and
// flat {"type": "surfaceUpdate", ...} objects. These are deprecated and
// reported at debug level when seen.
//
// Service applies payloads to a Processor once per message id and keeps
// the surface to message ownership used to consolidate incremental updates
// into a single chat bubble.
package a2ui
