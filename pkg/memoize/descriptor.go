// Package memoize implements QueryMemoizer (spec §4.3): a single-flight,
// canonicalized-key wrapper over the orchestrator that turns an
// arbitrary producer function into a cached, deduplicated lookup.
package memoize

// Kind enumerates the QueryDescriptor kinds from spec §3.
type Kind string

const (
	KindSearch   Kind = "search"
	KindDatabase Kind = "database"
	KindAPI      Kind = "api"
	KindGeneric  Kind = "generic"
)

// Descriptor identifies a memoizable query (spec §3 QueryDescriptor).
type Descriptor struct {
	Kind       Kind
	Operation  string
	Parameters interface{}
	Version    string
}
