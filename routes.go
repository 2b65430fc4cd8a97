package ernie

// RouteTable maps module names to the pool that serves them. It is built
// once at startup and read-only afterwards.
type RouteTable struct {
	routes map[string]string
}

// NewRouteTable folds pool configs into a flat module routing table. The
// first pool to register a module wins; later duplicates are ignored.
func NewRouteTable(pools []PoolConfig) *RouteTable {
	routes := make(map[string]string)
	for _, pc := range pools {
		for _, mod := range pc.Modules {
			if _, exists := routes[mod]; exists {
				continue
			}
			routes[mod] = pc.ID
		}
	}

	return &RouteTable{routes: routes}
}

// Lookup resolves a module name to its pool identifier.
func (rt *RouteTable) Lookup(module string) (string, bool) {
	id, ok := rt.routes[module]

	return id, ok
}

// Len returns the number of routed modules.
func (rt *RouteTable) Len() int {
	return len(rt.routes)
}
