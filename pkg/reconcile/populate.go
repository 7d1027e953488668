package reconcile

import "github.com/flowbridge/syncd/pkg/sai"

// Populate seeds the temporary view with a dummy NOT_PROCESSED object for
// every switch-internal default RID the switch inventory discovered that
// the producer didn't itself reference, so that find_best_current_match
// has something in the temp view to pair the default against (spec.md
// §4.5, create_dummy_existing_object; §2's flow step "populates default
// objects from the switch inventory"). Call once, before Run.
func (r *Reconciler) Populate() {
	if r.Inv == nil {
		return
	}
	for _, rid := range r.defaultRIDs() {
		vid, ok := r.RIDVID.VIDOf(rid)
		if !ok {
			continue
		}
		if _, ok := r.Temp.Get(vid.ObjectType(), sai.OIDKey(vid.ObjectType(), vid)); ok {
			continue
		}
		r.Temp.CreateDummyExistingObject(vid)
	}
}

func (r *Reconciler) defaultRIDs() []sai.RID {
	var out []sai.RID
	for _, attr := range []sai.AttrID{
		sai.AttrSwitchDefaultVR,
		sai.AttrSwitchDefaultTrapGroup,
		sai.AttrSwitchCPUPort,
	} {
		if rid, ok := r.Inv.DefaultAttrRID(attr); ok {
			out = append(out, rid)
		}
	}
	return out
}
