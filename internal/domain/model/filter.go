package model

// Skipped records a session excluded from analysis as malformed.
type Skipped struct {
	SessionID string
	Reason    SkipReason
}

// Partition splits sessions into the well-formed ones inside w and the
// malformed ones. Sessions outside w are dropped silently.
func Partition(sessions []SessionMetric, w Window) (valid []SessionMetric, skipped []Skipped) {
	valid = make([]SessionMetric, 0, len(sessions))
	for _, s := range sessions {
		if !w.Contains(s.Date) {
			continue
		}
		if reason := s.Check(); reason != SkipNone {
			skipped = append(skipped, Skipped{SessionID: s.SessionID, Reason: reason})
			continue
		}
		valid = append(valid, s)
	}
	return valid, skipped
}
