package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/site-operator/go-sdk/pkg/core"
	"github.com/site-operator/go-sdk/pkg/middleware"
	"github.com/site-operator/go-sdk/pkg/transport"
)

// Path is appended to the API URL.
const Path = "/api/v2/conversations"

// Config configures a Client.
type Config struct {
	// APIURL is the service root, e.g. http://localhost:8003.
	APIURL     string
	HTTPClient *http.Client
	Token      middleware.TokenSource
	Logger     logrus.FieldLogger
}

// Client talks to the conversations REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, &core.ConfigError{Field: "APIURL", Value: cfg.APIURL, Err: errors.New("conversations API URL cannot be empty")}
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, &core.ConfigError{Field: "APIURL", Value: cfg.APIURL, Err: err}
	}
	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	client := cfg.HTTPClient
	if client == nil {
		client = transport.NewHTTPClient(middleware.BearerAuth(cfg.Token), middleware.ClientLogging(logger))
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/") + Path,
		http:    client,
		logger:  logger,
	}, nil
}

// List returns every conversation of the current user.
func (c *Client) List(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.do(ctx, "fetch", http.MethodGet, c.baseURL, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one conversation.
func (c *Client) Get(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, "fetch", http.MethodGet, c.itemURL(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create creates a conversation. An empty title becomes DefaultTitle.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Conversation, error) {
	if req.Title == "" {
		req.Title = DefaultTitle
	}
	var out Conversation
	if err := c.do(ctx, "create", http.MethodPost, c.baseURL, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial update with PUT.
func (c *Client) Update(ctx context.Context, id string, patch Patch) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, "update", http.MethodPut, c.itemURL(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a conversation.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, c.itemURL(id), nil, nil)
}

func (c *Client) itemURL(id string) string {
	return c.baseURL + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.TransportError{Transport: "http", URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		herr := &HTTPError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(msg)}
		c.logger.WithFields(logrus.Fields{"method": method, "url": target, "status": resp.StatusCode}).Warn(herr.Error())
		return herr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
