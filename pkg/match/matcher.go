// Package match implements find_best_current_match (spec.md §4.6): given a
// temporary-view object, find its best corresponding object in the current
// view, or report that none exists and the object must be created fresh.
package match

import (
	"errors"
	"math/rand"

	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
)

// ErrDuplicateNonOIDMatch is the DUPLICATE_NON_OID_MATCH invariant
// violation: a non-OID entry's rewritten key resolved to a current-view
// object that is no longer NOT_PROCESSED.
var ErrDuplicateNonOIDMatch = errors.New("match: duplicate non-oid match")

// excludedFromDownstream types are excluded from the
// dependency-graph tie-break traversal to keep it bounded: ports and
// switches are referenced by nearly everything, and following self-loops
// never terminates.
var excludedFromDownstream = map[sai.ObjectType]bool{
	sai.ObjectTypePort:   true,
	sai.ObjectTypeSwitch: true,
}

// Matcher finds best-match pairings between a temporary view and a
// current view, consulting the RID/VID map to translate identity across
// the two.
type Matcher struct {
	Current *asicview.View
	Temp    *asicview.View
	RIDVID  *ridvid.Map
	rng     *rand.Rand
}

// New constructs a Matcher. seed fixes the tie-break random source so a
// run can be reproduced byte-for-byte from a recording (P7).
func New(current, temp *asicview.View, ridVid *ridvid.Map, seed int64) *Matcher {
	return &Matcher{Current: current, Temp: temp, RIDVID: ridVid, rng: rand.New(rand.NewSource(seed))}
}

// FindBestCurrentMatch routes to the per-object-type matching rule.
func (m *Matcher) FindBestCurrentMatch(tempObj *sai.Object) (*sai.Object, error) {
	switch {
	case !tempObj.Type.IsOID():
		return m.matchNonOID(tempObj)
	case tempObj.Type == sai.ObjectTypeSwitch:
		return m.matchSwitch()
	case tempObj.Status == sai.Matched:
		return m.matchByIdentity(tempObj)
	default:
		return m.matchGenericOID(tempObj)
	}
}

func (m *Matcher) matchNonOID(tempObj *sai.Object) (*sai.Object, error) {
	rewritten := tempObj.Key.Rewrite(func(vid sai.VID) sai.VID {
		rid, ok := m.RIDVID.RIDOf(vid)
		if !ok {
			return sai.NullVID
		}
		cur, ok := m.RIDVID.VIDOf(rid)
		if !ok {
			return sai.NullVID
		}
		return cur
	})
	for _, vid := range rewritten.OIDsIn() {
		if vid.IsNull() {
			return nil, nil
		}
	}

	candidate, ok := m.Current.Get(tempObj.Type, rewritten)
	if !ok {
		return nil, nil
	}
	switch candidate.Status {
	case sai.NotProcessed:
		return candidate, nil
	case sai.Final, sai.Matched:
		return nil, ErrDuplicateNonOIDMatch
	default:
		return nil, nil
	}
}

func (m *Matcher) matchSwitch() (*sai.Object, error) {
	switches := m.Current.ObjectsByType(sai.ObjectTypeSwitch)
	for _, sw := range switches {
		// A single process manages exactly one switch (Non-goal: no
		// multi-switch support), so the sole current-view switch is
		// always the match as long as it hasn't already been
		// finalized or removed — regardless of whether the identity
		// pre-match pass already marked it MATCHED.
		if sw.Status == sai.NotProcessed || sw.Status == sai.Matched {
			return sw, nil
		}
	}
	return nil, nil
}

func (m *Matcher) matchByIdentity(tempObj *sai.Object) (*sai.Object, error) {
	cur, ok := m.Current.Get(tempObj.Type, sai.OIDKey(tempObj.Type, tempObj.VID()))
	if !ok {
		return nil, nil
	}
	return cur, nil
}

func (m *Matcher) matchGenericOID(tempObj *sai.Object) (*sai.Object, error) {
	candidates := m.Current.NotProcessedByType(tempObj.Type)
	if len(candidates) == 0 {
		return nil, nil
	}

	type scored struct {
		obj   *sai.Object
		score int
	}
	var scoredCandidates []scored

	for _, cand := range candidates {
		if m.disqualified(tempObj, cand) {
			continue
		}
		scoredCandidates = append(scoredCandidates, scored{obj: cand, score: m.equalAttrCount(tempObj, cand)})
	}
	if len(scoredCandidates) == 0 {
		return nil, nil
	}

	best := scoredCandidates[0].score
	for _, c := range scoredCandidates[1:] {
		if c.score > best {
			best = c.score
		}
	}

	var tied []*sai.Object
	for _, c := range scoredCandidates {
		if c.score == best {
			tied = append(tied, c.obj)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}

	return m.breakTie(tempObj, tied), nil
}

// disqualified reports whether cand shares an attribute id with temp but
// holds a different value for an attribute whose flags include
// CREATE_ONLY — such an object cannot be updated in place and must not be
// matched.
func (m *Matcher) disqualified(tempObj, cand *sai.Object) bool {
	for attrID, tempVal := range tempObj.Attrs {
		curVal, ok := cand.Attrs[attrID]
		if !ok {
			continue
		}
		meta, ok := sai.Meta(tempObj.Type, attrID)
		if ok && meta.Flags.Has(sai.CreateOnly) && !m.valuesEqual(tempVal, curVal) {
			return true
		}
	}
	return false
}

func (m *Matcher) equalAttrCount(tempObj, cand *sai.Object) int {
	count := 0
	for attrID, tempVal := range tempObj.Attrs {
		curVal, ok := cand.Attrs[attrID]
		if !ok {
			continue
		}
		if m.valuesEqual(tempVal, curVal) {
			count++
		}
	}
	return count
}

// valuesEqual implements the OID-attribute equality rule from spec.md
// §4.6: two OID values are equal only if both resolve through the
// RID/VID map to the same RID (a temp VID with no RID yet is never
// equal to anything). Non-OID-bearing values fall back to structural
// equality.
func (m *Matcher) valuesEqual(a, b sai.Value) bool {
	if a.Kind != sai.KindOID && a.Kind != sai.KindOIDList {
		return a.Equal(b)
	}
	if a.Kind == sai.KindOID {
		return m.oidEqual(a.OID, b.OID)
	}
	if len(a.OIDList) != len(b.OIDList) {
		return false
	}
	for i := range a.OIDList {
		if !m.oidEqual(a.OIDList[i], b.OIDList[i]) {
			return false
		}
	}
	return true
}

func (m *Matcher) oidEqual(a, b sai.VID) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() || b.IsNull() {
		return false
	}
	ridA, ok := m.RIDVID.RIDOf(a)
	if !ok {
		return false
	}
	ridB, ok := m.RIDVID.RIDOf(b)
	if !ok {
		return false
	}
	return ridA == ridB
}

// breakTie applies the dependency-graph-size heuristic: prefer the
// candidate whose downstream-reference count exactly matches the temp
// object's own downstream-reference count in the temp view; if none is
// exact, pick uniformly at random from the tied set. The random source is
// seeded by the caller so a run is reproducible from its recording (P7).
func (m *Matcher) breakTie(tempObj *sai.Object, tied []*sai.Object) *sai.Object {
	tempDegree := downstreamUsers(m.Temp, tempObj.VID())

	for _, cand := range tied {
		if downstreamUsers(m.Current, cand.VID()) == tempDegree {
			return cand
		}
	}
	return tied[m.rng.Intn(len(tied))]
}

// downstreamUsers counts objects in view that reference vid through any
// attribute, excluding port/switch objects to keep the traversal bounded.
func downstreamUsers(view *asicview.View, vid sai.VID) int {
	count := 0
	for _, obj := range allObjects(view) {
		if excludedFromDownstream[obj.Type] {
			continue
		}
		if obj.VID() == vid {
			continue // self-loop
		}
		for _, referenced := range obj.OIDsInAttrs() {
			if referenced == vid {
				count++
				break
			}
		}
	}
	return count
}

func allObjects(view *asicview.View) []*sai.Object {
	var out []*sai.Object
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		out = append(out, view.ObjectsByType(t)...)
	}
	return out
}
