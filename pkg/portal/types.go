package portal

// SchemaVersion is the version of AppContext and AppState.
const SchemaVersion = "1.1"

// AppContext describes the host application. It is registered once and
// forwarded to the agent on every turn.
type AppContext struct {
	V    string `json:"v" yaml:"v"`
	Site Site   `json:"site" yaml:"site"`
	User *User  `json:"user,omitempty" yaml:"user,omitempty"`
	Nav  *Nav   `json:"nav,omitempty" yaml:"nav,omitempty"`
}

// Site identifies the host application.
type Site struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Deployment  string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Locale      string `json:"locale,omitempty" yaml:"locale,omitempty"`
}

// User is the signed in user, when known.
type User struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
}

// Nav lists routes and globally available click targets.
type Nav struct {
	Routes             []Route       `json:"routes" yaml:"routes"`
	GlobalClickTargets []ClickTarget `json:"globalClickTargets,omitempty" yaml:"globalClickTargets,omitempty"`
}

// Route is a page of the host application.
type Route struct {
	ID           string        `json:"id,omitempty" yaml:"id,omitempty"`
	Path         string        `json:"path" yaml:"path"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords     []string      `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	UIComponents []string      `json:"uiComponents,omitempty" yaml:"uiComponents,omitempty"`
	SubSections  []SubSection  `json:"subSections,omitempty" yaml:"subSections,omitempty"`
	ClickTargets []ClickTarget `json:"clickTargets,omitempty" yaml:"clickTargets,omitempty"`
}

// SubSection is a logical part of a page such as a tab.
type SubSection struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ClickTarget is an interactive element the agent may operate.
type ClickTarget struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Locator     *Locator `json:"locator,omitempty" yaml:"locator,omitempty"`
	Action      Action   `json:"action" yaml:"action"`
}

// Locator finds a click target in the page.
type Locator struct {
	TestID   string `json:"testId,omitempty" yaml:"testId,omitempty"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
	Href     string `json:"href,omitempty" yaml:"href,omitempty"`
}

// AppState is the dynamic state of the host application.
type AppState struct {
	V        string   `json:"v"`
	Location Location `json:"location"`
	UI       UIState  `json:"ui"`
	Focus    *Focus   `json:"focus,omitempty"`
}

// Location is the current route.
type Location struct {
	RouteID string            `json:"routeId,omitempty"`
	Path    string            `json:"path"`
	Params  map[string]string `json:"params,omitempty"`
	Title   string            `json:"title,omitempty"`
}

// UIState lists the click targets visible right now.
type UIState struct {
	VisibleClickTargetIDs []string `json:"visibleClickTargetIds"`
}

// Focus is the entity the user is looking at.
type Focus struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// NewAppState returns an empty state at path "/".
func NewAppState() AppState {
	return AppState{V: SchemaVersion, Location: Location{Path: "/"}, UI: UIState{VisibleClickTargetIDs: []string{}}}
}

// Routes returns the navigable routes.
func (c AppContext) Routes() []Route {
	if c.Nav == nil {
		return nil
	}
	return c.Nav.Routes
}

// Route finds a route by id.
func (c AppContext) Route(id string) (Route, bool) {
	for _, r := range c.Routes() {
		if r.ID == id {
			return r, true
		}
	}
	return Route{}, false
}
