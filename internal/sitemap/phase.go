package sitemap

// Phase is a step of the orchestrator's linear state machine. Failed is
// reachable from every phase.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseStaticPages
	PhaseCategorySweep
	PhaseItemSweep
	PhaseShardSeal
	PhaseIndexAssemble
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseStaticPages:
		return "static_pages"
	case PhaseCategorySweep:
		return "category_sweep"
	case PhaseItemSweep:
		return "item_sweep"
	case PhaseShardSeal:
		return "shard_seal"
	case PhaseIndexAssemble:
		return "index_assemble"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}
