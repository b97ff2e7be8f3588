package badger

import "github.com/poiesic/cognate/core"

// Key prefixes for different data types
const (
	conceptPrefix     = "cgcon:"
	associationPrefix = "cgasc:"
	providerStateKey  = "cgprov:state"
)

// makeConceptKey generates a key for a concept by ID.
func makeConceptKey(id core.ID) []byte {
	buf := make([]byte, 0, len(conceptPrefix)+len(id))
	buf = append(buf, conceptPrefix...)
	return append(buf, id[:]...)
}

// makeAssociationKey generates a composite key for a directed
// association by its ordered endpoint pair.
func makeAssociationKey(source, target core.ID) []byte {
	buf := make([]byte, 0, len(associationPrefix)+2*len(source))
	buf = append(buf, associationPrefix...)
	buf = append(buf, source[:]...)
	return append(buf, target[:]...)
}
