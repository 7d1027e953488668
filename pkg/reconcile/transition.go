package reconcile

import (
	"github.com/flowbridge/syncd/pkg/sai"
)

// transition implements §4.7.1: two passes (dry then commit) deciding,
// attribute by attribute, whether current can be mutated in place to
// match temp, or whether the object must be recreated. commit=false runs
// the dry pass (no mutation, no emitted ops); commit=true performs the
// same decisions for real.
func (r *Reconciler) transition(current, temp *sai.Object, commit bool) (bool, error) {
	consumed := make(map[sai.AttrID]bool, len(temp.Attrs))

	for attrID, tempVal := range temp.Attrs {
		consumed[attrID] = true
		curVal, hasCur := current.Attrs[attrID]
		meta, hasMeta := sai.Meta(temp.Type, attrID)

		if hasCur {
			if curVal.Equal(tempVal) {
				continue
			}
			if hasMeta && meta.Flags.Has(sai.CreateAndSet) {
				if commit {
					r.Current.SetAttribute(current, attrID, tempVal)
				}
				continue
			}
			return false, nil
		}

		if hasMeta && meta.Flags.Has(sai.CreateAndSet) && !meta.IsConditional {
			if commit {
				r.Current.SetAttribute(current, attrID, tempVal)
			}
			continue
		}
		if current.Status == sai.Matched && hasMeta && meta.Flags.Has(sai.CreateOnly) {
			continue
		}
		return false, nil
	}

	for attrID, curVal := range current.Attrs {
		if consumed[attrID] {
			continue
		}
		meta, hasMeta := sai.Meta(current.Type, attrID)
		if !hasMeta {
			continue
		}

		def, hasDef := sai.DefaultValueFor(meta, r.Default)
		if hasDef && curVal.Equal(def) {
			continue
		}
		if hasDef && meta.Flags.Has(sai.CreateAndSet) {
			if commit {
				r.Current.SetAttribute(current, attrID, def)
			}
			continue
		}
		if current.Status == sai.Matched && meta.Flags.Has(sai.CreateOnly) {
			continue
		}
		if meta.Flags.Has(sai.MandatoryOnCreate) || meta.IsConditional {
			if rid, ok := r.preSwitchDefault(current, attrID); ok {
				if commit {
					r.Current.SetAttribute(current, attrID, sai.OIDValue(rid))
				}
				continue
			}
		}
		return false, nil
	}

	return true, nil
}

// preSwitchDefault recovers a recoverable pre-switch default from the
// switch inventory's default_oid_map for a mandatory-on-create or
// conditional attribute (spec.md §4.7.1's SCHEDULER_GROUP.SCHEDULER_
// PROFILE_ID example).
func (r *Reconciler) preSwitchDefault(current *sai.Object, attrID sai.AttrID) (sai.VID, bool) {
	if r.Inv == nil {
		return sai.NullVID, false
	}
	rid, ok := r.RIDVID.RIDOf(current.VID())
	if !ok {
		return sai.NullVID, false
	}
	defaultRID, ok := r.Inv.DefaultOIDMap(rid, attrID)
	if !ok {
		return sai.NullVID, false
	}
	return r.RIDVID.VIDOf(defaultRID)
}

// createNewFromTemp implements §4.7.2: clone temp into a new current-view
// object, rewriting struct-member OIDs where the RID/VID map already has
// an answer and leaving temp VIDs marked created otherwise, then mark
// both FINAL.
func (r *Reconciler) createNewFromTemp(temp *sai.Object) error {
	clone := temp.Clone()
	clone.Created = true

	if !clone.Type.IsOID() {
		clone.Key = clone.Key.Rewrite(func(vid sai.VID) sai.VID {
			if rid, ok := r.RIDVID.RIDOf(vid); ok {
				if cur, ok := r.RIDVID.VIDOf(rid); ok {
					return cur
				}
			}
			return vid
		})
	}

	r.Current.CreateObject(clone)
	clone.SetStatus(sai.Final)
	temp.SetStatus(sai.Final)
	return nil
}

// removeOrDefault implements §4.7.3.
func (r *Reconciler) removeOrDefault(current *sai.Object) error {
	if current.Type == sai.ObjectTypeSwitch {
		return ErrSwitchRemoveUnsupported
	}

	if current.Type.IsOID() {
		vid := current.VID()
		if r.Current.ReferenceCount(vid) != 0 && !r.isNonRemovable(vid) {
			r.Metrics.RecordRefcountFloorViolation(current.Type.String())
			return ErrRefcountViolation
		}
		if r.isNonRemovable(vid) {
			return r.bringToDefault(current)
		}
	}

	r.Current.RemoveObject(current)
	return nil
}

func (r *Reconciler) isNonRemovable(vid sai.VID) bool {
	if r.Inv == nil {
		return false
	}
	rid, ok := r.RIDVID.RIDOf(vid)
	if !ok {
		return false
	}
	return r.Inv.IsNonRemovable(rid)
}

// bringToDefault resets every CREATE_AND_SET attribute whose default is
// available and whose current value differs from it, then marks current
// FINAL without removing it.
func (r *Reconciler) bringToDefault(current *sai.Object) error {
	for attrID, curVal := range current.Attrs {
		meta, ok := sai.Meta(current.Type, attrID)
		if !ok || !meta.Flags.Has(sai.CreateAndSet) {
			continue
		}
		def, ok := sai.DefaultValueFor(meta, r.Default)
		if !ok || curVal.Equal(def) {
			continue
		}
		r.Current.SetAttribute(current, attrID, def)
	}
	current.SetStatus(sai.Final)
	return nil
}
