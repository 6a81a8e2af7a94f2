package pipeline

import "time"

// Summary describes one completed run.
type Summary struct {
	RunID           string
	Entries         int
	Resolved        int
	Unresolved      int
	Emitted         int
	FailedGroups    int
	PersistFailures int
	NoData          bool
	Duration        time.Duration

	// Outcomes counts lookup outcomes by lookup and Outcome.Kind().
	Outcomes map[Lookup]map[string]int
}

func newSummary(runID string, entries int) Summary {
	return Summary{
		RunID:    runID,
		Entries:  entries,
		Outcomes: make(map[Lookup]map[string]int),
	}
}

func (s *Summary) record(l Lookup, out Outcome) {
	if s.Outcomes[l] == nil {
		s.Outcomes[l] = make(map[string]int)
	}
	s.Outcomes[l][out.Kind()]++
}

func (s Summary) clone() Summary {
	out := s
	out.Outcomes = make(map[Lookup]map[string]int, len(s.Outcomes))
	for l, kinds := range s.Outcomes {
		m := make(map[string]int, len(kinds))
		for k, v := range kinds {
			m[k] = v
		}
		out.Outcomes[l] = m
	}
	return out
}
