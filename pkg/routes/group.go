package routes

import "net/http"

// Group shares a prefix such as /picc or /decisions. Children nest under it.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Endpoints flattens the group and its children in declaration order.
func (g Group) Endpoints() []Endpoint {
	return g.collect("", nil)
}

func (g Group) collect(parent string, out []Endpoint) []Endpoint {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		out = append(out, Endpoint{Method: r.Method, Path: prefix + r.Pattern, Handler: r.Handler})
	}
	for _, child := range g.Children {
		out = child.collect(prefix, out)
	}
	return out
}

// Register mounts every endpoint of groups on mux.
// ServeMux panics on a conflicting pattern.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, g := range groups {
		for _, e := range g.Endpoints() {
			mux.HandleFunc(e.Pattern(), e.Handler)
		}
	}
}
