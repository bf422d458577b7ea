package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/core/events"
	"github.com/site-operator/go-sdk/pkg/ids"
)

// ErrScriptedFailure is returned by EchoAgent for the "fail" command.
var ErrScriptedFailure = errors.New("scripted failure")

// EchoAgent is a scripted agent for local development. It reacts to the
// last user message:
//
//	go to <path>   navigate_user tool call
//	form           an A2UI surface rendered through activity snapshots
//	click <id>     a click activity
//	fail           run error
//
// Anything else is echoed back as streamed text.
type EchoAgent struct {
	// ChunkDelay is slept between streamed text chunks.
	ChunkDelay time.Duration
}

// Run implements Agent.
func (a *EchoAgent) Run(ctx context.Context, input *core.RunAgentInput, emit func(events.Event) error) error {
	if err := emit(events.NewRunStartedEvent(input.ThreadID, input.RunID)); err != nil {
		return err
	}

	text := strings.TrimSpace(lastUserText(input.Messages))
	cmd := strings.ToLower(text)

	var err error
	switch {
	case cmd == "fail":
		return ErrScriptedFailure
	case strings.HasPrefix(cmd, "go to "):
		err = a.navigate(emit, strings.TrimSpace(text[len("go to "):]))
	case cmd == "form":
		err = a.form(emit)
	case strings.HasPrefix(cmd, "click "):
		err = a.click(emit, strings.TrimSpace(text[len("click "):]))
	default:
		err = a.echo(ctx, emit, text)
	}
	if err != nil {
		return err
	}

	turns := 0
	for _, m := range input.Messages {
		if m.Role == "user" {
			turns++
		}
	}
	if err := emit(events.NewStateSnapshotEvent(map[string]any{"lastMessage": text, "turns": turns})); err != nil {
		return err
	}
	return emit(events.NewRunFinishedEvent(input.ThreadID, input.RunID))
}

func (a *EchoAgent) echo(ctx context.Context, emit func(events.Event) error, text string) error {
	id := ids.NewMessageID()
	if err := emit(events.NewTextMessageStartEvent(id, events.WithRole("assistant"))); err != nil {
		return err
	}
	reply := "You said: " + text
	if text == "" {
		reply = "Hello! How can I help?"
	}
	for _, chunk := range strings.SplitAfter(reply, " ") {
		if chunk == "" {
			continue
		}
		if a.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.ChunkDelay):
			}
		}
		if err := emit(events.NewTextMessageContentEvent(id, chunk)); err != nil {
			return err
		}
	}
	return emit(events.NewTextMessageEndEvent(id))
}

func (a *EchoAgent) navigate(emit func(events.Event) error, path string) error {
	msgID := ids.NewMessageID()
	callID := ids.NewToolCallID()
	args, err := json.Marshal(map[string]string{"path": path, "reason": "requested by user"})
	if err != nil {
		return err
	}
	if err := emit(events.NewToolCallStartEvent(callID, "navigate_user", events.WithParentMessageID(msgID))); err != nil {
		return err
	}
	if err := emit(events.NewToolCallArgsEvent(callID, string(args))); err != nil {
		return err
	}
	return emit(events.NewToolCallEndEvent(callID))
}

func (a *EchoAgent) click(emit func(events.Event) error, target string) error {
	ev, err := events.NewActivitySnapshotEvent(ids.NewMessageID(), "click", map[string]string{"targetId": target})
	if err != nil {
		return err
	}
	return emit(ev)
}

func (a *EchoAgent) form(emit func(events.Event) error) error {
	msgID := ids.NewMessageID()
	surface := ids.Short("contact")

	first, err := events.NewActivitySnapshotEvent(msgID, a2ui.ActivityType, map[string]any{
		"operations": []a2ui.Message{
			a2ui.NewBeginRendering(surface, "root"),
			a2ui.NewSurfaceUpdate(surface,
				a2ui.NewComponent("root", "Column", map[string]any{
					"children": map[string]any{"explicitList": []string{"title", "name", "submit"}},
				}),
				a2ui.NewComponent("title", "Text", map[string]any{"text": map[string]any{"literalString": "Contact"}}),
				a2ui.NewComponent("name", "TextField", map[string]any{
					"label": map[string]any{"literalString": "Name"},
					"text":  map[string]any{"path": "/form/name"},
				}),
				a2ui.NewComponent("submit", "Button", map[string]any{"child": "title", "action": map[string]any{"name": "submit"}}),
			),
		},
	})
	if err != nil {
		return fmt.Errorf("build form snapshot: %w", err)
	}
	if err := emit(first); err != nil {
		return err
	}

	data, err := events.NewActivitySnapshotEvent(msgID, a2ui.ActivityType, map[string]any{
		"operations": []a2ui.Message{
			a2ui.NewDataModelUpdate(surface, "form", a2ui.String("name", "")),
		},
	}, events.WithReplace(false))
	if err != nil {
		return fmt.Errorf("build data snapshot: %w", err)
	}
	return emit(data)
}

func lastUserText(msgs []events.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" && msgs[i].Content != nil {
			return *msgs[i].Content
		}
	}
	return ""
}
