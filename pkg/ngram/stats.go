package ngram

// Stats holds aggregated statistics for a trained model.
type Stats struct {
	WindowLength   int `json:"window_length"`
	Windows        int `json:"windows"`         // Distinct windows seen in training.
	Transitions    int `json:"transitions"`     // Distinct window -> symbol links.
	TotalFrequency int `json:"total_frequency"` // Sum of all counts; bytes trained on past the first window.
	Symbols        int `json:"symbols"`         // Distinct symbols that follow some window.
}

// Stats returns a snapshot of the model's size.
func (m *Model) Stats() Stats {
	st := Stats{WindowLength: m.windowLength, Windows: len(m.tables)}
	seen := make(map[Symbol]struct{})
	for _, table := range m.tables {
		st.Transitions += table.Len()
		st.TotalFrequency += table.Total()
		for _, e := range table.entries {
			seen[e.Symbol] = struct{}{}
		}
	}
	st.Symbols = len(seen)
	return st
}
