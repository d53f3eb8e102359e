package game

// HistoryEntry is one applied transition: either a move by a player or
// a timeout charged against the player that was due. The sequence of
// entries, replayed against a fresh engine built from the same params,
// reproduces the full state.
type HistoryEntry struct {
	Player    int   `json:"player,omitempty"`
	Move      Move  `json:"move,omitempty"`
	Timeout   bool  `json:"timeout,omitempty"`
	ElapsedMs int64 `json:"elapsedMs,omitempty"`
}
