// Package ids generates the prefixed identifiers used for threads, messages,
// tool calls and the other entities exchanged with the agent.
package ids

import (
	"strings"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind selects the prefix of a generated identifier.
type Kind string

const (
	Thread           Kind = "thread"
	Message          Kind = "message"
	ToolCall         Kind = "toolCall"
	Workflow         Kind = "workflow"
	Task             Kind = "task"
	Attachment       Kind = "attachment"
	SDKHiddenContext Kind = "sdkHiddenContext"
)

const randomLength = 8

// ShortLength is the length of the random part produced by Short.
const ShortLength = 12

var prefixes = map[Kind]string{
	Thread:           "thr",
	Message:          "msg",
	ToolCall:         "tc",
	Workflow:         "wf",
	Task:             "tsk",
	Attachment:       "atc",
	SDKHiddenContext: "shcx",
}

// Prefix returns the prefix used for kind, or "id" for unknown kinds.
func Prefix(kind Kind) string {
	if p, ok := prefixes[kind]; ok {
		return p
	}
	return "id"
}

// New returns "<prefix>_<8 hex chars>" where the random part comes from a v4 UUID.
func New(kind Kind) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Prefix(kind) + "_" + hex[:randomLength]
}

// NewThreadID returns a fresh thread identifier.
func NewThreadID() string { return New(Thread) }

// NewMessageID returns a fresh message identifier.
func NewMessageID() string { return New(Message) }

// NewToolCallID returns a fresh tool call identifier.
func NewToolCallID() string { return New(ToolCall) }

// Short returns prefix + "_" + a url-safe nanoid. Used for run ids where the
// eight hex characters of New are not enough entropy.
func Short(prefix string) string {
	id, err := nanoid.New(ShortLength)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

// HasKind reports whether id carries the prefix of kind.
func HasKind(id string, kind Kind) bool {
	return strings.HasPrefix(id, Prefix(kind)+"_")
}
