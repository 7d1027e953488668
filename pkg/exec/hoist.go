package exec

import (
	"github.com/flowbridge/syncd/pkg/asicview"
	"github.com/flowbridge/syncd/pkg/sai"
)

// hoist implements the remove-hoist optimization (spec.md §4.8, P6):
// non-OID removes go first, preserving their relative order; every
// other operation is appended in emission order with an advancing
// cursor; each OID remove is inserted as early as dependency safety
// allows — immediately after the operation that last dropped its VID's
// reference count to zero, or at the cursor if no such operation
// exists.
func hoist(nonOID, general []asicview.Operation, lastDecref func(vid sai.VID) (uint64, bool)) []asicview.Operation {
	result := make([]asicview.Operation, 0, len(nonOID)+len(general))
	result = append(result, nonOID...)
	cursor := len(result)

	positions := make(map[uint64]int, len(general))

	for _, op := range general {
		if op.Kind == asicview.OpRemove && op.Object.Type.IsOID() {
			vid := op.Object.VID()
			if lastID, ok := lastDecref(vid); ok {
				if pos, ok := positions[lastID]; ok {
					at := pos + 1
					result = insertAt(result, at, op)
					shiftPositionsFrom(positions, at)
					positions[op.ID] = at
					continue
				}
			}
			result = insertAt(result, cursor, op)
			shiftPositionsFrom(positions, cursor)
			positions[op.ID] = cursor
			cursor++
			continue
		}

		result = append(result, op)
		positions[op.ID] = len(result) - 1
	}

	return result
}

func insertAt(ops []asicview.Operation, at int, op asicview.Operation) []asicview.Operation {
	ops = append(ops, asicview.Operation{})
	copy(ops[at+1:], ops[at:])
	ops[at] = op
	return ops
}

func shiftPositionsFrom(positions map[uint64]int, at int) {
	for id, pos := range positions {
		if pos >= at {
			positions[id] = pos + 1
		}
	}
}
