package cache

import "strings"

// Namespaces for the cached read shapes of the expense tracker. A key is
// always "<namespace>:<owner>" or "<namespace>:<owner>:<qualifier...>",
// so invalidating Prefix(namespace, owner) evicts every cached view of
// that namespace for that owner in one call.
const (
	NamespaceCategories = "categories"
	NamespaceExpenses   = "expenses"
	NamespaceSummary    = "summary"
)

// Key composes a cache key from a namespace, an owner scope, and optional
// qualifiers (page, filters, date range tokens).
func Key(namespace, owner string, qualifiers ...string) string {
	parts := append([]string{namespace, owner}, qualifiers...)
	return strings.Join(parts, ":")
}

// Prefix returns the invalidation prefix covering every key produced by
// Key for the same namespace and owner.
func Prefix(namespace, owner string) string {
	return namespace + ":" + owner
}

// writeDependents maps an entity namespace to every namespace whose cached
// reads can change when an entity of that type is written. Summaries are
// derived from expenses, and the category tree shapes both expense listings
// (category paths) and summary groupings, so category writes fan out widest.
// Deliberately coarse: over-invalidation is acceptable, staleness is not.
var writeDependents = map[string][]string{
	NamespaceCategories: {NamespaceCategories, NamespaceExpenses, NamespaceSummary},
	NamespaceExpenses:   {NamespaceExpenses, NamespaceSummary},
	NamespaceSummary:    {NamespaceSummary},
}

// WritePrefixes returns the fixed set of prefixes a writer must invalidate
// after committing a mutation of the given entity namespace for owner. The
// set is independent of which fields changed.
func WritePrefixes(namespace, owner string) []string {
	dependents, ok := writeDependents[namespace]
	if !ok {
		dependents = []string{namespace}
	}
	prefixes := make([]string, 0, len(dependents))
	for _, dep := range dependents {
		prefixes = append(prefixes, Prefix(dep, owner))
	}
	return prefixes
}

// InvalidateWrite evicts every cached view affected by a committed write of
// the given entity namespace for owner. It returns the total number of
// entries removed.
func InvalidateWrite(c Cache, namespace, owner string) int {
	var removed int
	for _, prefix := range WritePrefixes(namespace, owner) {
		removed += c.Invalidate(prefix)
	}
	return removed
}
