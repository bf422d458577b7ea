package chat

import (
	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/messages"
)

// Visible reports whether the thread shows msg. A2UI messages are shown once
// they carry more than a bare beginRendering; this check runs before the
// role rules so generative UI in activity and tool messages is not hidden.
// Otherwise only user and assistant messages are shown.
func Visible(msg messages.Message, svc *a2ui.Service) bool {
	if a2ui.IsA2UIMessage(msg) {
		return !svc.IsBeginRenderingOnly(msg)
	}
	switch msg.Role {
	case messages.RoleUser, messages.RoleAssistant:
		return true
	default:
		return false
	}
}
