package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avcheck/internal/roster/models"
)

// Runs only against a real database: set AVCHECK_TEST_PG_DSN to enable.
func testSink(t *testing.T) *Sink {
	t.Helper()
	dsn := os.Getenv("AVCHECK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AVCHECK_TEST_PG_DSN not set")
	}
	sink, err := NewSink(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(sink.Close)
	return sink
}

func TestSink_RecordIsIdempotent(t *testing.T) {
	sink := testSink(t)
	ctx := context.Background()

	v, err := models.Parse("Alice,Smith,6,1990,48104")
	require.NoError(t, err)

	require.NoError(t, sink.Record(ctx, []*models.Voter{v}))
	// Second insert conflicts on the identity columns and is ignored.
	require.NoError(t, sink.Record(ctx, []*models.Voter{v}))

	var count int
	err = sink.pool.QueryRow(ctx,
		`SELECT count(*) FROM voters_with_ballots
		 WHERE first_name = $1 AND last_name = $2 AND birth_year = $3 AND zip = $4`,
		v.First, v.Last, v.BirthYear, v.Zip).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSink_RejectsUnresolvedMonth(t *testing.T) {
	sink := testSink(t)

	v, err := models.Parse("Bob,Jones,1985,48105")
	require.NoError(t, err)

	err = sink.Record(context.Background(), []*models.Voter{v})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no resolved birth month")
}
