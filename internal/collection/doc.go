// Package collection is the client-side model of an ordered image
// collection. A Collection is a value: every mutation returns a new
// Collection and leaves the receiver unchanged, so a failed submit or a
// rejected edit never disturbs the state the user is looking at.
//
// Position is the index in the sequence; the wire order is position+1.
// Images loaded from the server are Persisted. Images added locally are
// Pending until a submit succeeds and the collection is hydrated again.
// Removing a Persisted image records it in the removal set so the server
// can be told to delete it.
package collection
