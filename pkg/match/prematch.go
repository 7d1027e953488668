package match

import (
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
)

// PreMatch performs the identity-matching pass the reconciler's top-level
// flow does up front (spec.md §2: "matches identifiers up front using the
// RID/VID map"): any temp-view OID object whose VID already has a RID in
// the map, and for which the current view holds a NOT_PROCESSED object
// sharing that VID, is marked MATCHED in both views before reconciliation
// proper begins.
func PreMatch(current, temp *asicview.View, ridVid *ridvid.Map) {
	for _, t := range oidTypes() {
		for _, tempObj := range temp.NotProcessedByType(t) {
			vid := tempObj.VID()
			if vid.IsNull() {
				continue
			}
			if _, ok := ridVid.RIDOf(vid); !ok {
				continue
			}
			curObj, ok := current.Get(t, sai.OIDKey(t, vid))
			if !ok || curObj.Status != sai.NotProcessed {
				continue
			}
			tempObj.SetStatus(sai.Matched)
			curObj.SetStatus(sai.Matched)
		}
	}
}

func oidTypes() []sai.ObjectType {
	var out []sai.ObjectType
	for t := sai.ObjectTypeNull + 1; t.IsValid(); t++ {
		if t.IsOID() {
			out = append(out, t)
		}
	}
	return out
}
