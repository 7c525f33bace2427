// Package ident assigns collision-free scene ids to records produced by a
// generation run.
//
// Every "new diagram" request mints a run token with [NewToken]. A
// [Namespacer] scoped to that run maps each raw producer id to
// token + "-" + raw, memoising the answer so a growing stream never sees an
// id reassigned. Without a token (loading a saved scene, or refining one
// existing node) raw ids pass through unchanged.
//
// [Strip] and [StripScene] reverse the mapping before a scene is handed to
// persistence, so stored presets carry token-free ids.
package ident

import (
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Separator joins a run token and a raw id.
const Separator = "-"

// tokenHexLen is how many hex digits of the uuid go into a token.
const tokenHexLen = 12

// NewToken mints a run token: "g" followed by 12 hex digits of a random
// (v4) uuid.
func NewToken() string {
	u := uuid.New()
	hex := strings.ReplaceAll(u.String(), "-", "")
	return "g" + hex[:tokenHexLen]
}

// Namespacer maps raw producer ids to final scene ids for one run.
// It is not safe for concurrent use; a run is processed by one caller at a
// time.
type Namespacer struct {
	token string
	memo  map[string]string
}

// NewNamespacer returns a namespacer for token. An empty token makes ids
// pass through unchanged.
func NewNamespacer(token string) *Namespacer {
	return &Namespacer{token: token, memo: map[string]string{}}
}

// Restore rebuilds a namespacer from a memo table saved with [Namespacer.Table].
func Restore(token string, table map[string]string) *Namespacer {
	ns := NewNamespacer(token)
	maps.Copy(ns.memo, table)
	return ns
}

// Token returns the run token, possibly empty.
func (ns *Namespacer) Token() string { return ns.token }

// Map returns the final id for raw, computing and memoising it on first use.
func (ns *Namespacer) Map(raw string) string {
	if raw == "" {
		return ""
	}
	if id, ok := ns.memo[raw]; ok {
		return id
	}
	id := raw
	if ns.token != "" {
		id = ns.token + Separator + raw
	}
	ns.memo[raw] = id
	return id
}

// Pin forces raw to map onto final, typically an existing scene id that a
// refine operation grafts onto. A raw id that was already handed out keeps
// its earlier mapping and Pin reports false.
func (ns *Namespacer) Pin(raw, final string) bool {
	if _, ok := ns.memo[raw]; ok {
		return false
	}
	ns.memo[raw] = final
	return true
}

// Lookup returns the memoised id for raw without assigning one.
func (ns *Namespacer) Lookup(raw string) (string, bool) {
	id, ok := ns.memo[raw]
	return id, ok
}

// Table returns a copy of the memo table.
func (ns *Namespacer) Table() map[string]string {
	return maps.Clone(ns.memo)
}

// Len returns the number of memoised ids.
func (ns *Namespacer) Len() int { return len(ns.memo) }

// Owns reports whether id was produced under token.
func Owns(id, token string) bool {
	return token != "" && strings.HasPrefix(id, token+Separator)
}

// TokenOf returns the run token an id was produced under, or "" when the
// id carries no token prefix.
func TokenOf(id string) string {
	n := 1 + tokenHexLen
	if len(id) <= n+len(Separator) || id[0] != 'g' || id[n:n+len(Separator)] != Separator {
		return ""
	}
	for _, c := range id[1:n] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return ""
		}
	}
	return id[:n]
}

// Strip removes the run prefix from id. Ids not owned by token are
// returned unchanged.
func Strip(id, token string) string {
	if !Owns(id, token) {
		return id
	}
	return id[len(token)+len(Separator):]
}

// StripScene returns a copy of s with the run prefix removed from node ids,
// parent references, edge ids and endpoints. When stripping would make two
// ids collide (a token-free id already present), the prefixed id is kept.
func StripScene(s scene.Scene, token string) scene.Scene {
	if token == "" {
		return s.Clone()
	}
	rename := map[string]string{}
	for _, id := range s.NodeIDs() {
		raw := Strip(id, token)
		if raw != id {
			if _, clash := s.Nodes[raw]; clash {
				continue
			}
		}
		rename[id] = raw
	}
	mapNode := func(id string) string {
		if r, ok := rename[id]; ok {
			return r
		}
		return id
	}

	out := scene.New()
	for _, n := range s.SortedNodes() {
		n = n.Clone()
		n.ID = mapNode(n.ID)
		n.Parent = mapNode(n.Parent)
		out.PutNode(n)
	}
	for _, e := range s.SortedEdges() {
		e = e.Clone()
		raw := Strip(e.ID, token)
		if _, clash := out.Edges[raw]; clash || (raw != e.ID && s.Edges[raw].ID != "") {
			raw = e.ID
		}
		e.ID = raw
		e.Source = mapNode(e.Source)
		e.Target = mapNode(e.Target)
		out.PutEdge(e)
	}
	return out
}
