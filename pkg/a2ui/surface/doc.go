// Package surface implements an in-memory A2UI surface processor: per
// surface root, styles, components, nested data model and the resolved
// component tree.
package surface
