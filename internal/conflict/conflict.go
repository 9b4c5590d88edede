// Package conflict finds overlaps between a change request and the other
// active ones. Findings are advisory and never block a transition.
package conflict

import (
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/extract"
)

// Detect compares target with every other non-terminal change request.
// An identifier overlap (shared changed ids) takes precedence over a
// document overlap (same origin document). At most one warning is
// produced per other change request, in the order of others.
func Detect(target *cr.ChangeRequest, others []*cr.ChangeRequest) []cr.ConflictWarning {
	mine := extract.NewIDSet(target.ChangedIDs...)
	warnings := []cr.ConflictWarning{}
	for _, o := range others {
		if o == nil || o.ID == target.ID || o.Status.Terminal() {
			continue
		}
		if shared := mine.Intersect(extract.NewIDSet(o.ChangedIDs...)); len(shared) > 0 {
			warnings = append(warnings, cr.ConflictWarning{
				CRID:        o.ID,
				OverlapType: cr.OverlapIdentifier,
				Overlapping: shared,
			})
			continue
		}
		if o.OriginDoc == target.OriginDoc {
			warnings = append(warnings, cr.ConflictWarning{
				CRID:        o.ID,
				OverlapType: cr.OverlapDocument,
				Overlapping: []string{string(o.OriginDoc)},
			})
		}
	}
	return warnings
}
