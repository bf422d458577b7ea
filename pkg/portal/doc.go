// Package portal bridges the chat core and the host application.
//
// A Bridge is created once by the application entry point and injected
// into the chat service. The host registers its AppContext and reports
// which click targets are visible; the agent's navigate, click, setValue
// and plan actions are executed through ExecutePlan, which waits for
// targets to appear before acting:
//
//	bridge := portal.New()
//	bridge.RegisterPortal(appContext, nil)
//	bridge.OnAction(func(a portal.Action) { host.Perform(a) })
//	res := bridge.ExecutePlan(ctx, portal.Click("btn.save", ""))
package portal
