// Package reconcile keeps the duration, flow rate and volume of a protocol
// row mutually consistent as the operator edits any one of them.
//
// Every edit recomputes exactly one of the other two quantities using
// volume = rate * duration. Which one is chosen depends on a per-row record
// of the two most recently edited groups, so values typed a moment ago are
// not immediately overwritten and the derived field does not flip back and
// forth while the operator types.
package reconcile
