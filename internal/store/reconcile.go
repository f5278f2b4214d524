package store

import "farmverse/internal/models"

// Reconcile merges a backend catalog response into the current catalog.
//
// The result is remote, deduplicated by identity, followed by the entries of
// current that are local and whose key does not appear in remote. Backend
// entries therefore replace same-identity local entries, and applying the
// same response twice yields the same catalog. Keyless remote entries are
// kept as sent; their presence supersedes every keyless current entry.
func Reconcile(current, remote []models.Product) []models.Product {
	merged := make([]models.Product, 0, len(remote)+len(current))
	seen := make(map[string]struct{}, len(remote))

	for _, p := range remote {
		key := p.Key()
		if _, dup := seen[key]; dup && key != "" {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, p)
	}

	for _, p := range current {
		ref := p.Ref()
		if !ref.IsLocal() {
			continue
		}
		if _, superseded := seen[ref.Key()]; superseded {
			continue
		}
		merged = append(merged, p)
	}
	return merged
}
