package models

// Tier represents the execution tier for a model call.
// Tiers trade cost for capability; the router picks one per call.
type Tier string

const (
	// TierCheap is for simple tasks where a small, inexpensive model suffices.
	TierCheap Tier = "cheap"
	// TierCapable is for complex tasks requiring a stronger model.
	TierCapable Tier = "capable"
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierCheap, TierCapable:
		return true
	default:
		return false
	}
}
