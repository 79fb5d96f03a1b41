package marks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingcenter/internal/certificate/models"
	dErrors "trainingcenter/pkg/domain-errors"
)

var electrician = []string{"Safety", "Wiring"}

func TestEncode(t *testing.T) {
	t.Run("orders marks by subject list", func(t *testing.T) {
		m, err := Encode(electrician, map[string]models.ScoreInput{
			"Wiring": {Obtained: "40", Total: "50"},
			"Safety": {Obtained: "90", Total: "100"},
		})
		require.NoError(t, err)
		assert.Equal(t, models.Marks{
			{Subject: "Safety", Obtained: 90, Total: 100},
			{Subject: "Wiring", Obtained: 40, Total: 50},
		}, m)
	})

	t.Run("ignores scores for subjects outside the list", func(t *testing.T) {
		m, err := Encode([]string{"Safety"}, map[string]models.ScoreInput{
			"Safety":  {Obtained: "1", Total: "1"},
			"Retired": {Obtained: "1", Total: "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Safety"}, m.Subjects())
	})

	t.Run("empty subject list yields empty marks", func(t *testing.T) {
		m, err := Encode(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("accepts obtained equal to total and zero", func(t *testing.T) {
		_, err := Encode(electrician, map[string]models.ScoreInput{
			"Safety": {Obtained: "100", Total: "100"},
			"Wiring": {Obtained: "0", Total: "50"},
		})
		require.NoError(t, err)
	})
}

func TestEncodeRejections(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]models.ScoreInput
		want   error
	}{
		{
			name:   "missing subject",
			scores: map[string]models.ScoreInput{"Safety": {Obtained: "90", Total: "100"}},
			want:   ErrIncompleteMarks,
		},
		{
			name: "empty obtained",
			scores: map[string]models.ScoreInput{
				"Safety": {Obtained: "90", Total: "100"},
				"Wiring": {Obtained: " ", Total: "50"},
			},
			want: ErrIncompleteMarks,
		},
		{
			name: "empty total",
			scores: map[string]models.ScoreInput{
				"Safety": {Obtained: "90", Total: ""},
				"Wiring": {Obtained: "40", Total: "50"},
			},
			want: ErrIncompleteMarks,
		},
		{
			name: "non-numeric",
			scores: map[string]models.ScoreInput{
				"Safety": {Obtained: "ninety", Total: "100"},
				"Wiring": {Obtained: "40", Total: "50"},
			},
			want: ErrIncompleteMarks,
		},
		{
			name: "obtained exceeds total",
			scores: map[string]models.ScoreInput{
				"Safety": {Obtained: "90", Total: "100"},
				"Wiring": {Obtained: "60", Total: "50"},
			},
			want: ErrScoreOutOfBounds,
		},
		{
			name: "negative",
			scores: map[string]models.ScoreInput{
				"Safety": {Obtained: "-1", Total: "100"},
				"Wiring": {Obtained: "40", Total: "50"},
			},
			want: ErrScoreOutOfBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(electrician, tt.scores)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestDecode(t *testing.T) {
	rows := Decode(models.Marks{
		{Subject: "Safety", Obtained: 90, Total: 100},
		{Subject: "Wiring", Obtained: 40.5, Total: 50},
	})
	assert.Equal(t, []models.MarkRow{
		{Subject: "Safety", Score: "90 / 100"},
		{Subject: "Wiring", Score: "40.5 / 50"},
	}, rows)
}

func TestRoundTrip(t *testing.T) {
	subjects := []string{"Theory", "Practical", "Viva"}
	scores := map[string]models.ScoreInput{
		"Viva":      {Obtained: "7.5", Total: "10"},
		"Theory":    {Obtained: "55", Total: "70"},
		"Practical": {Obtained: "20", Total: "20"},
	}

	m, err := Encode(subjects, scores)
	require.NoError(t, err)

	rows := Decode(m)
	require.Len(t, rows, len(subjects))
	for i, subject := range subjects {
		assert.Equal(t, subject, rows[i].Subject)
		assert.Equal(t, scores[subject].Obtained+" / "+scores[subject].Total, rows[i].Score)
	}

	again, err := Encode(m.Subjects(), ToScoreInputs(m))
	require.NoError(t, err)
	assert.Equal(t, m, again)
}
