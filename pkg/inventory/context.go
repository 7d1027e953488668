package inventory

import (
	"github.com/flowbridge/syncd/pkg/ridvid"
	"github.com/flowbridge/syncd/pkg/sai"
)

// DefaultContext adapts an Inventory's RID-space discovery results into
// the VID-space sai.DefaultContext the reconciler and attribute model
// consult, translating through the RID/VID map built during view load.
type DefaultContext struct {
	Inventory *Inventory
	RIDVID    *ridvid.Map
}

var _ sai.DefaultContext = (*DefaultContext)(nil)

// SwitchAttr implements sai.DefaultContext.
func (c *DefaultContext) SwitchAttr(id sai.AttrID) (sai.Value, bool) {
	rid, ok := c.Inventory.DefaultAttrRID(id)
	if !ok {
		return sai.Value{}, false
	}
	vid, ok := c.RIDVID.VIDOf(rid)
	if !ok {
		return sai.Value{}, false
	}
	return sai.OIDValue(vid), true
}

// InventorySrcMAC implements sai.DefaultContext.
func (c *DefaultContext) InventorySrcMAC() (sai.Value, bool) {
	if c.Inventory.srcMAC == nil {
		return sai.Value{}, false
	}
	return *c.Inventory.srcMAC, true
}
