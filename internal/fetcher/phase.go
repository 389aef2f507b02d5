package fetcher

// Phase is the position of one Nearby query in its state machine.
type Phase int

const (
	Idle Phase = iota
	FetchingCoarseNeighborhood
	FetchingFineKeysPerNeighbor
	FetchingItemsPerFineKey
	Done
	Errored
)

var phaseNames = [...]string{
	Idle:                        "idle",
	FetchingCoarseNeighborhood:  "fetching_coarse_neighborhood",
	FetchingFineKeysPerNeighbor: "fetching_fine_keys_per_neighbor",
	FetchingItemsPerFineKey:     "fetching_items_per_fine_key",
	Done:                        "done",
	Errored:                     "errored",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition can follow p.
func (p Phase) Terminal() bool { return p == Done || p == Errored }
