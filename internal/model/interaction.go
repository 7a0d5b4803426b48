package model

// InteractionRecord is the append-only log entry for one resolved proximity
// group. Turn is set when a cognition turn ran as part of the interaction.
type InteractionRecord struct {
	ID           string      `json:"id"`
	Tick         int         `json:"tick"`
	Participants []string    `json:"participants"`
	Dialogue     string      `json:"dialogue"`
	Summary      string      `json:"summary"`
	Degraded     bool        `json:"degraded,omitempty"`
	Turn         *TurnRecord `json:"turn,omitempty"`
}

// Clone deep-copies the record including the nested turn.
func (r InteractionRecord) Clone() InteractionRecord {
	c := r
	c.Participants = append([]string(nil), r.Participants...)
	if r.Turn != nil {
		t := r.Turn.Clone()
		c.Turn = &t
	}
	return c
}
