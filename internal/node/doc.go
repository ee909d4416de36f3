// Package node implements the node schema and node instances.
//
// A Kind describes the maximal interface surface of a category of scene
// object together with a declarative binding table (defaults, hooks,
// handlers) built once at registration time. A Registry holds kinds and
// creates Types: named, validated subsets of a kind's interfaces. A Type
// creates Nodes inside a Scope.
//
// Ownership: nodes live in an Arena and are addressed by field.NodeID. The
// arena's root set plus the SFNode/MFNode storage of live nodes are the only
// owning edges. Scopes, routes and eventOut buffers never keep a node alive.
// Arena.Collect destroys every node unreachable from the roots, including
// cyclic subgraphs.
//
// Concurrency: mutation (field sets, event delivery, node creation) happens
// on a single writer. Readers may call Field, Modified and BoundingVolume
// concurrently while no mutation is in flight.
package node
