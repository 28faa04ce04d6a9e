package goclique

import "errors"

// Errors
var (
	ErrMalformedGraph     = errors.New("malformed input graph")
	ErrBadVtxID           = errors.New("bad graph vertex ID")
	ErrBadAdjacency       = errors.New("bad or inconsistent adjacency")
	ErrMemoInvariant      = errors.New("memo invariant violation: expanded clique not adjacent to its root")
	ErrWorkerUnresponsive = errors.New("worker unresponsive")
	ErrBadGroup           = errors.New("bad process group")
	ErrBadMessage         = errors.New("bad wire message")
	ErrInvalidClique      = errors.New("not a clique of the graph")
	ErrBadSearchParam     = errors.New("bad search param")
)
