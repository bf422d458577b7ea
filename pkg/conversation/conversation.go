package conversation

import (
	"fmt"
	"time"

	"github.com/site-operator/go-sdk/pkg/messages"
)

// DefaultTitle is used when a conversation is created without a title.
const DefaultTitle = "New conversation"

// Conversation is a persisted chat thread.
type Conversation struct {
	ID         string             `json:"id"`
	Messages   []messages.Message `json:"messages"`
	IsRunning  bool               `json:"isRunning"`
	Title      string             `json:"title"`
	UserID     string             `json:"userId"`
	AppContext any                `json:"appContext,omitempty"`
	CreatedAt  time.Time          `json:"createdAt,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt,omitempty"`
}

// Summary is the list view of a conversation.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Summary returns the list view of c.
func (c Conversation) Summary() Summary {
	return Summary{ID: c.ID, Title: c.Title}
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Title      string `json:"title"`
	AppContext any    `json:"appContext,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title     *string            `json:"title,omitempty"`
	Messages  []messages.Message `json:"messages,omitempty"`
	IsRunning *bool              `json:"isRunning,omitempty"`
}

// Apply writes the set fields of p into c.
func (p Patch) Apply(c *Conversation) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Messages != nil {
		c.Messages = p.Messages
	}
	if p.IsRunning != nil {
		c.IsRunning = *p.IsRunning
	}
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Failed to %s conversation: %s", e.Op, e.Status)
}

// NotFound reports whether the server answered 404.
func (e *HTTPError) NotFound() bool {
	return e.StatusCode == 404
}
