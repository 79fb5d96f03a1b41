// Package marks converts between the editable per-subject score map used by
// issuance screens and the ordered marks stored on a certificate.
package marks

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"trainingcenter/internal/certificate/models"
	dErrors "trainingcenter/pkg/domain-errors"
	pstrings "trainingcenter/pkg/platform/strings"
)

var (
	// ErrIncompleteMarks is returned when a course subject has no usable score.
	ErrIncompleteMarks = errors.New("incomplete marks")
	// ErrScoreOutOfBounds is returned when a score falls outside 0 <= obtained <= total.
	ErrScoreOutOfBounds = errors.New("score out of bounds")
)

// Encode validates scores against the course's subject list and returns the
// marks in subject-list order. Scores for subjects outside the list are ignored.
func Encode(subjects []string, scores map[string]models.ScoreInput) (models.Marks, error) {
	subjects = pstrings.DedupeAndTrim(subjects)
	normalized := make(map[string]models.ScoreInput, len(scores))
	for name, score := range scores {
		normalized[pstrings.CollapseSpace(name)] = score
	}

	out := make(models.Marks, 0, len(subjects))
	for _, subject := range subjects {
		score, ok := normalized[subject]
		if !ok {
			return nil, incomplete(subject, "no score entered")
		}
		obtained, err := parseScore(subject, "obtained", score.Obtained)
		if err != nil {
			return nil, err
		}
		total, err := parseScore(subject, "total", score.Total)
		if err != nil {
			return nil, err
		}
		if obtained > total {
			return nil, dErrors.Wrap(ErrScoreOutOfBounds, dErrors.CodeValidation,
				fmt.Sprintf("%s: obtained %s exceeds total %s", subject, formatScore(obtained), formatScore(total)))
		}
		out = append(out, models.SubjectMark{Subject: subject, Obtained: obtained, Total: total})
	}
	return out, nil
}

// Decode renders one row per stored subject, in stored order.
func Decode(m models.Marks) []models.MarkRow {
	rows := make([]models.MarkRow, 0, len(m))
	for _, sm := range m {
		rows = append(rows, models.MarkRow{
			Subject: sm.Subject,
			Score:   formatScore(sm.Obtained) + " / " + formatScore(sm.Total),
		})
	}
	return rows
}

// ToScoreInputs turns stored marks back into editable inputs, for pre-filling
// an edit screen. Encode(m.Subjects(), ToScoreInputs(m)) reproduces m.
func ToScoreInputs(m models.Marks) map[string]models.ScoreInput {
	out := make(map[string]models.ScoreInput, len(m))
	for _, sm := range m {
		out[sm.Subject] = models.ScoreInput{
			Obtained: formatScore(sm.Obtained),
			Total:    formatScore(sm.Total),
		}
	}
	return out
}

func parseScore(subject, field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, incomplete(subject, field+" is empty")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, incomplete(subject, field+" is not a number")
	}
	if v < 0 {
		return 0, dErrors.Wrap(ErrScoreOutOfBounds, dErrors.CodeValidation,
			fmt.Sprintf("%s: %s must not be negative", subject, field))
	}
	return v, nil
}

func incomplete(subject, reason string) error {
	return dErrors.Wrap(ErrIncompleteMarks, dErrors.CodeValidation, fmt.Sprintf("%s: %s", subject, reason))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
