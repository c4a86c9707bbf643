package btree

// Element is an immutable key/value pair. Ordering is by Key only; Data is
// opaque payload carried alongside the key in every node, internal nodes
// included.
type Element struct {
	Key  int32
	Data int32
}

// sentinel marks a vacated key slot in the on-disk node image. It is a
// serialization artifact only; -1 remains a legal key at the API level.
var sentinel = Element{Key: -1, Data: -1}
