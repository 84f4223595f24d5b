package models

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/atelier-ai/atelier/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightBefore(t *testing.T) {
	t.Parallel()

	current, err := weightBefore(&types.TokenWeight{Weight: 1.4}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.4, current, 0.001)

	current, err = weightBefore(&types.TokenWeight{}, sql.ErrNoRows)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, current, 0.001, "missing row starts neutral")

	_, err = weightBefore(&types.TokenWeight{}, errors.New("connection reset"))
	assert.Error(t, err, "transient select failures must not read as a missing row")
}
