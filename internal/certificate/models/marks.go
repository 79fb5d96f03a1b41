package models

// SubjectMark is one subject's score on a certificate.
type SubjectMark struct {
	Subject  string  `json:"subject"`
	Obtained float64 `json:"obtained"`
	Total    float64 `json:"total"`
}

// Marks holds per-subject scores in the course's subject order at composition
// time. Subject names are unique within a record.
type Marks []SubjectMark

// Get returns the entry for subject.
func (m Marks) Get(subject string) (SubjectMark, bool) {
	for _, sm := range m {
		if sm.Subject == subject {
			return sm, true
		}
	}
	return SubjectMark{}, false
}

// Subjects lists subject names in stored order.
func (m Marks) Subjects() []string {
	out := make([]string, 0, len(m))
	for _, sm := range m {
		out = append(out, sm.Subject)
	}
	return out
}

func (m Marks) Clone() Marks {
	if m == nil {
		return nil
	}
	return append(Marks(nil), m...)
}

// ScoreInput is a score as typed into an editing screen. Values are kept as
// text so that blank fields can be told apart from zero.
type ScoreInput struct {
	Obtained string `json:"obtained"`
	Total    string `json:"total"`
}

// MarkRow is one rendered line of a certificate's marks table.
type MarkRow struct {
	Subject string `json:"subject"`
	Score   string `json:"score"`
}
