package core

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID_UniqueAndTimeOrdered(t *testing.T) {
	const n = 2000
	seen := make(map[RunID]bool, n)
	prev := ""
	for i := 0; i < n; i++ {
		id := NewRunID()
		require.False(t, ID(id).IsEmpty())
		require.False(t, seen[id], "duplicate run ID %s", id)
		seen[id] = true

		parsed, err := uuid.Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.GreaterOrEqual(t, id.String()[:13], prev[:min(len(prev), 13)], "v7 IDs sort by creation time")
		prev = id.String()
	}
}

func TestCandidateIDs(t *testing.T) {
	assert.NotEqual(t, NewCandidateID(), NewCandidateID())
	assert.Equal(t, "baseline", BaselineCandidateID.String())
}

func TestParseRunID(t *testing.T) {
	valid := NewRunID()

	tests := []struct {
		name    string
		input   string
		want    RunID
		wantErr bool
	}{
		{"uuid", valid.String(), valid, false},
		{"not a uuid", "run-123", "", true},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsValidationError(NewRunConfigError("max_iterations", "must be positive")))
	assert.True(t, IsValidationError(ErrDuplicateAttribute))
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.True(t, IsNotFoundError(NewNotFoundError("report", "abc")))
	assert.True(t, IsNotFoundError(ErrReportNotFound))
	assert.False(t, IsNotFoundError(ErrEmptyDataset))
}

func TestHash_Short(t *testing.T) {
	h := NewHash([]byte("biasclean"))
	assert.Len(t, h.Short(), 12)
	assert.Equal(t, "abc", Hash("abc").Short())
	assert.True(t, Hash("").IsEmpty())
}

func TestHasher_MatchesOneShotHash(t *testing.T) {
	got := NewHasher().String("ab").Byte(1).Sum()
	assert.Equal(t, NewHash([]byte{'a', 'b', 0, 1}), got)
}

func TestHasher_FieldBoundaries(t *testing.T) {
	a := NewHasher().String("ab").String("c").Sum()
	b := NewHasher().String("a").String("bc").Sum()
	assert.NotEqual(t, a, b, "adjacent strings must not run together")
	assert.NotEqual(t, NewHasher().Float(0).Sum(), NewHasher().Float(math.Copysign(0, -1)).Sum())
}
