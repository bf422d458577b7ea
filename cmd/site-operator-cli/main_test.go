package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site-operator/go-sdk/internal/testutil"
	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/chat"
	"github.com/site-operator/go-sdk/pkg/client"
	"github.com/site-operator/go-sdk/pkg/messages"
	"github.com/site-operator/go-sdk/pkg/portal"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "(not set)"},
		{"short", "****"},
		{"sk-1234567890abcd", "sk-1****abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.in))
		})
	}
}

func newTestService(t *testing.T, bridge *portal.Bridge, runs ...testutil.Run) *chat.Service {
	t.Helper()
	logger, _ := test.NewNullLogger()
	agent, err := client.New(client.Config{Transport: testutil.NewScripted(runs...), Logger: logger})
	require.NoError(t, err)
	svc, err := chat.New(chat.Config{Agent: agent, Bridge: bridge, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestPrinterStreamsVisibleMessages(t *testing.T) {
	svc := newTestService(t, portal.New(), testutil.TextRun("t1", "r1", "m1", "Hello", " world"))
	var out bytes.Buffer
	p := newPrinter(&out, svc)
	defer svc.Subscribe(p.onChange)()

	require.NoError(t, svc.SendMessage(context.Background(), "hi", messages.RoleUser))
	p.endTurn()

	assert.Contains(t, out.String(), "You: hi")
	assert.Contains(t, out.String(), "Agent: Hello world\n")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Agent:")))
}

func TestHostNavigation(t *testing.T) {
	bridge := portal.New()
	svc := newTestService(t, bridge)
	appContext := portal.AppContext{
		Site: portal.Site{Name: "CRM"},
		Nav: &portal.Nav{
			Routes: []portal.Route{
				{ID: "home", Path: "/", Title: "Home"},
				{ID: "leads", Path: "/leads", Title: "Leads", ClickTargets: []portal.ClickTarget{{ID: "new-lead", Name: "New lead"}}},
			},
			GlobalClickTargets: []portal.ClickTarget{{ID: "help", Name: "Help"}},
		},
	}
	var out bytes.Buffer
	h := &host{svc: svc, context: appContext, out: &out}
	bridge.RegisterPortal(appContext, &portal.Handlers{ExecutePlan: h.execute})

	h.enter("/")
	assert.True(t, bridge.IsVisible("help"))
	assert.False(t, bridge.IsVisible("new-lead"))

	res := bridge.ExecutePlan(context.Background(), portal.Navigate("", "open leads"))
	assert.False(t, res.OK(), "navigate needs a destination")

	nav := portal.Action{Type: portal.ActionNavigate, ToRouteID: "leads"}
	res = bridge.ExecutePlan(context.Background(), nav)
	require.True(t, res.OK(), "%v", res.Details)
	assert.Equal(t, "/leads", svc.AppState().Location.Path)
	assert.Equal(t, "leads", svc.AppState().Location.RouteID)
	assert.True(t, bridge.IsVisible("new-lead"))

	res = bridge.ExecutePlan(context.Background(), portal.Click("new-lead", ""))
	require.True(t, res.OK(), "%v", res.Details)
	assert.Contains(t, out.String(), "[navigate] /leads")
	assert.Contains(t, out.String(), "[click] new-lead")
}

func TestSurfaceSummary(t *testing.T) {
	payloads, err := a2ui.Normalize([]any{
		map[string]any{"beginRendering": map[string]any{"surfaceId": "s1", "root": "c1"}},
		map[string]any{"surfaceUpdate": map[string]any{"surfaceId": "s1", "components": []any{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "surface s1", surfaceSummary(payloads))
	assert.Equal(t, "generated interface", surfaceSummary(nil))
}

func TestPrintTools(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printTools(&out, portal.Tools(), false))
	assert.Contains(t, out.String(), "click_element")
	assert.Contains(t, out.String(), "execute_ui_plan")
	assert.NotContains(t, out.String(), `"properties"`)

	out.Reset()
	require.NoError(t, printTools(&out, portal.Tools(), true))
	assert.Contains(t, out.String(), `"target_id"`)
}
