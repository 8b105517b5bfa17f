package reconcile

// RecencyState records the two most recently edited groups of one row.
// Last and SecondToLast are always distinct.
type RecencyState struct {
	Last         Group `json:"last"`
	SecondToLast Group `json:"second_to_last"`
}

// NewRecencyState returns the state of a freshly created row.
func NewRecencyState() RecencyState {
	return RecencyState{Last: GroupVolume, SecondToLast: GroupRate}
}

func (s RecencyState) valid() bool {
	_, lastOK := groupNames[s.Last]
	_, secondOK := groupNames[s.SecondToLast]
	return lastOK && secondOK && s.Last != s.SecondToLast
}

func (s RecencyState) touched(g Group) bool {
	return s.Last == g || s.SecondToLast == g
}

// NextTarget picks the group to recompute after an edit to edited.
// The preferred target is skipped when it was touched in one of the last
// two edits, so the operator's recent inputs are not overwritten.
func NextTarget(s RecencyState, edited Group) Group {
	switch edited {
	case GroupDuration:
		if !s.touched(GroupRate) {
			return GroupRate
		}
		return GroupVolume
	case GroupRate:
		if !s.touched(GroupDuration) {
			return GroupDuration
		}
		return GroupVolume
	default:
		if !s.touched(GroupDuration) {
			return GroupDuration
		}
		return GroupRate
	}
}

// Update shifts the ordering when edited differs from the last edit.
// Repeated edits to the same group leave the state unchanged.
func (s *RecencyState) Update(edited Group) {
	if edited == s.Last {
		return
	}
	s.SecondToLast = s.Last
	s.Last = edited
}
