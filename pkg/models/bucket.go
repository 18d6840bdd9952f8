package models

import "time"

// BucketState is the in-memory accumulation unit for alerts sharing a
// bucket key over a sliding window. Mutated in place by the aggregator;
// never shared across goroutines (single-threaded aggregator loop).
type BucketState struct {
	BucketKey string

	WindowStart time.Time
	WindowEnd   time.Time

	Count int

	SumSeverity   float64
	SumConfidence float64
	ExternalCount int
	SensitiveCount int

	// Representative holds the raw alert of the latest-timestamped event
	// seen in this bucket so far.
	Representative RawAlert

	// RawRefIDs is capped at MaxRefIDs; once full, later ids are dropped
	// (oldest kept).
	RawRefIDs []string
	MaxRefIDs int

	// Sip/Dip/etc are carried for convenience so a Snapshot/AggregatedAlert
	// can be built without re-parsing BucketKey.
	SIP, DIP, Proto, RuleName, LogType, URITemplate string
}

// NewBucketState seeds a bucket from the first normalized alert assigned
// to it.
func NewBucketState(n NormalizedAlert, maxRefIDs int) *BucketState {
	b := &BucketState{
		BucketKey:      n.BucketKey(),
		WindowStart:    n.Timestamp,
		WindowEnd:      n.Timestamp,
		SIP:            n.SIP,
		DIP:            n.DIP,
		Proto:          n.Proto,
		RuleName:       n.RuleName,
		LogType:        n.LogType,
		URITemplate:    n.URITemplate,
		MaxRefIDs:      maxRefIDs,
		Representative: n.Raw,
	}
	b.Add(n)
	return b
}

// Add folds one more normalized alert into the bucket.
func (b *BucketState) Add(n NormalizedAlert) {
	if n.Timestamp.Before(b.WindowStart) {
		b.WindowStart = n.Timestamp
	}
	if n.Timestamp.After(b.WindowEnd) {
		b.WindowEnd = n.Timestamp
		b.Representative = n.Raw
	}

	b.Count++
	b.SumSeverity += n.Severity
	b.SumConfidence += n.Confidence
	if n.SrcExternal {
		b.ExternalCount++
	}
	if n.DstSensitive {
		b.SensitiveCount++
	}

	if len(b.RawRefIDs) < b.MaxRefIDs && n.RawID != "" {
		b.RawRefIDs = append(b.RawRefIDs, n.RawID)
	}
}

// IsExpired reports whether this bucket should be flushed: the window has
// been idle for at least windowSeconds relative to now.
func (b *BucketState) IsExpired(now time.Time, windowSeconds int) bool {
	return now.Sub(b.WindowEnd) >= time.Duration(windowSeconds)*time.Second
}

// Snapshot freezes the bucket into an immutable summary for scoring.
func (b *BucketState) Snapshot() Snapshot {
	count := float64(b.Count)
	if count == 0 {
		count = 1
	}
	return Snapshot{
		BucketKey:         b.BucketKey,
		SIP:               b.SIP,
		DIP:               b.DIP,
		Proto:             b.Proto,
		RuleName:          b.RuleName,
		LogType:           b.LogType,
		URITemplate:       b.URITemplate,
		WindowStart:       b.WindowStart,
		WindowEnd:         b.WindowEnd,
		Count:             b.Count,
		AvgSeverity:       Clamp01(b.SumSeverity / count),
		AvgConfidence:     Clamp01(b.SumConfidence / count),
		SrcExternalRatio:  Clamp01(float64(b.ExternalCount) / count),
		DstSensitiveRatio: Clamp01(float64(b.SensitiveCount) / count),
		RawRefIDs:         append([]string(nil), b.RawRefIDs...),
		Representative:    b.Representative,
	}
}

// Snapshot is the frozen view of a bucket produced on flush.
type Snapshot struct {
	BucketKey                                       string
	SIP, DIP, Proto, RuleName, LogType, URITemplate string
	WindowStart, WindowEnd                          time.Time
	Count                                           int
	AvgSeverity, AvgConfidence                      float64
	SrcExternalRatio, DstSensitiveRatio              float64
	RawRefIDs                                       []string
	Representative                                  RawAlert
}

// DurationSeconds returns max(window_end - window_start, 1) as used by
// the frequency subscore.
func (s Snapshot) DurationSeconds() float64 {
	d := s.WindowEnd.Sub(s.WindowStart).Seconds()
	if d < 1 {
		return 1
	}
	return d
}
