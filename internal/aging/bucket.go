package aging

import "time"

// Bucket is a discrete aging category derived from days-to-expiry.
type Bucket string

const (
	BucketNoExpiry Bucket = "no expiry"
	BucketExpired  Bucket = "expired/confirmed disposal"
)

// BucketBound is one rung of the aging ladder: days-to-expiry values
// up to and including MaxDays fall into Label.
type BucketBound struct {
	MaxDays int
	Label   Bucket
}

// BucketLadder is an ascending list of bounds plus a catch-all label
// for anything past the last bound.
type BucketLadder struct {
	Bounds   []BucketBound
	CatchAll Bucket
}

// DefaultBucketLadder is the canonical ladder. Call sites must share
// this one constant; the literals are not to be duplicated.
var DefaultBucketLadder = BucketLadder{
	Bounds: []BucketBound{
		{MaxDays: 90, Label: "<3mo"},
		{MaxDays: 180, Label: "<6mo"},
		{MaxDays: 210, Label: "<7mo"},
		{MaxDays: 270, Label: "<9mo"},
		{MaxDays: 365, Label: "<12mo"},
	},
	CatchAll: ">=12mo",
}

// Bucketize classifies a days-to-expiry value. Nil means the record
// has no expiry date at all; zero or negative means already expired.
// Boundaries are inclusive: exactly 90 days lands in "<3mo".
func (l BucketLadder) Bucketize(daysToExpiry *int) Bucket {
	if daysToExpiry == nil {
		return BucketNoExpiry
	}
	days := *daysToExpiry
	if days <= 0 {
		return BucketExpired
	}
	for _, b := range l.Bounds {
		if days <= b.MaxDays {
			return b.Label
		}
	}
	return l.CatchAll
}

// Labels returns every bucket label in display order.
func (l BucketLadder) Labels() []Bucket {
	labels := []Bucket{BucketNoExpiry, BucketExpired}
	for _, b := range l.Bounds {
		labels = append(labels, b.Label)
	}
	return append(labels, l.CatchAll)
}

// BucketLine is the per-bucket rollup of a record set.
type BucketLine struct {
	Bucket   Bucket  `json:"bucket"`
	Rows     int     `json:"rows"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// BucketSummary holds the full aging breakdown plus the headline
// expired-share figure.
type BucketSummary struct {
	Lines         []BucketLine `json:"lines"`
	TotalAmount   float64      `json:"total_amount"`
	ExpiredAmount float64      `json:"expired_amount"`
	ExpiredShare  float64      `json:"expired_share"`
	MissingExpiry int          `json:"missing_expiry"`
}

// SummarizeBuckets classifies every record by days-to-expiry as of the
// given date and rolls quantity and amount up per bucket.
func SummarizeBuckets(records []Record, asOf time.Time, ladder BucketLadder) BucketSummary {
	byLabel := make(map[Bucket]*BucketLine)
	order := ladder.Labels()
	for _, label := range order {
		byLabel[label] = &BucketLine{Bucket: label}
	}

	summary := BucketSummary{}
	for _, rec := range records {
		var days *int
		if rec.Expiry != nil {
			d := int(rec.Expiry.Sub(asOf).Hours() / 24)
			days = &d
		} else {
			summary.MissingExpiry++
		}
		bucket := ladder.Bucketize(days)
		line := byLabel[bucket]
		line.Rows++
		line.Quantity += rec.Quantity
		line.Amount += rec.Amount
		summary.TotalAmount += rec.Amount
		if bucket == BucketExpired {
			summary.ExpiredAmount += rec.Amount
		}
	}

	for _, label := range order {
		if line := byLabel[label]; line.Rows > 0 {
			summary.Lines = append(summary.Lines, *line)
		}
	}
	if summary.TotalAmount != 0 {
		summary.ExpiredShare = summary.ExpiredAmount / summary.TotalAmount
	}
	return summary
}
