package remotestore

import "fmt"

// Layout decides how a collection is laid out in the document store. Two
// shapes exist in deployments of this system: one flat collection shared by
// all owners and filtered by the owner-id field, and one collection per
// owner scoped by an owner path. Reads and writes always go through the
// same layout so the two stay symmetric.
type Layout interface {
	// CollectionFor returns the collection name records for ownerID live in.
	CollectionFor(ownerID string) string
	// FilterByOwner reports whether queries must additionally filter on the
	// owner-id column. Subcollection paths already scope the owner.
	FilterByOwner() bool
}

// FlatLayout stores every owner's records in one shared collection,
// filtered by the owner-id field.
type FlatLayout struct {
	Collection string
}

func (l FlatLayout) CollectionFor(string) string { return l.Collection }
func (l FlatLayout) FilterByOwner() bool         { return true }

// SubcollectionLayout stores each owner's records in an owner-scoped
// collection path, e.g. users/<uid>/notes.
type SubcollectionLayout struct {
	Parent string // e.g. "users"
	Name   string // e.g. "notes"
}

func (l SubcollectionLayout) CollectionFor(ownerID string) string {
	return fmt.Sprintf("%s/%s/%s", l.Parent, ownerID, l.Name)
}

func (l SubcollectionLayout) FilterByOwner() bool { return false }

// LayoutFor builds the configured layout for a collection name.
func LayoutFor(kind, name string) (Layout, error) {
	switch kind {
	case "flat":
		return FlatLayout{Collection: name}, nil
	case "subcollection":
		return SubcollectionLayout{Parent: "users", Name: name}, nil
	default:
		return nil, fmt.Errorf("unknown remote layout %q", kind)
	}
}
