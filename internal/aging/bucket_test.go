package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func days(n int) *int { return &n }

func TestBucketizeBoundaries(t *testing.T) {
	ladder := DefaultBucketLadder

	assert.Equal(t, BucketNoExpiry, ladder.Bucketize(nil))
	assert.Equal(t, BucketExpired, ladder.Bucketize(days(0)))
	assert.Equal(t, BucketExpired, ladder.Bucketize(days(-5)))

	// Boundaries are inclusive.
	assert.Equal(t, Bucket("<3mo"), ladder.Bucketize(days(1)))
	assert.Equal(t, Bucket("<3mo"), ladder.Bucketize(days(90)))
	assert.Equal(t, Bucket("<6mo"), ladder.Bucketize(days(91)))
	assert.Equal(t, Bucket("<6mo"), ladder.Bucketize(days(180)))
	assert.Equal(t, Bucket("<7mo"), ladder.Bucketize(days(210)))
	assert.Equal(t, Bucket("<9mo"), ladder.Bucketize(days(270)))
	assert.Equal(t, Bucket("<12mo"), ladder.Bucketize(days(365)))
	assert.Equal(t, Bucket(">=12mo"), ladder.Bucketize(days(366)))
}

func TestSummarizeBuckets(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expSoon := asOf.AddDate(0, 0, 30)
	expPast := asOf.AddDate(0, 0, -10)

	records := []Record{
		{MaterialCode: "1", Quantity: 10, Amount: 100, Expiry: &expSoon},
		{MaterialCode: "2", Quantity: 5, Amount: 50, Expiry: &expPast},
		{MaterialCode: "3", Quantity: 1, Amount: 25},
	}

	summary := SummarizeBuckets(records, asOf, DefaultBucketLadder)

	assert.Equal(t, 1, summary.MissingExpiry)
	assert.InDelta(t, 175.0, summary.TotalAmount, 1e-9)
	assert.InDelta(t, 50.0, summary.ExpiredAmount, 1e-9)
	assert.InDelta(t, 50.0/175.0, summary.ExpiredShare, 1e-9)

	byBucket := map[Bucket]BucketLine{}
	for _, line := range summary.Lines {
		byBucket[line.Bucket] = line
	}
	assert.InDelta(t, 100.0, byBucket["<3mo"].Amount, 1e-9)
	assert.InDelta(t, 50.0, byBucket[BucketExpired].Amount, 1e-9)
	assert.InDelta(t, 25.0, byBucket[BucketNoExpiry].Amount, 1e-9)
}
