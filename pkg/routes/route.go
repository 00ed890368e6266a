// Package routes declares endpoints as data. Domain handlers return a Group,
// and the API module mounts the groups on its ServeMux.
package routes

import "net/http"

// Route is one endpoint relative to its group prefix. An empty Pattern
// addresses the group root, as in GET /decisions.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Endpoint is a Route with every enclosing prefix applied.
type Endpoint struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Pattern renders the endpoint in ServeMux form, e.g. "POST /picc/notarize".
func (e Endpoint) Pattern() string {
	return e.Method + " " + e.Path
}
