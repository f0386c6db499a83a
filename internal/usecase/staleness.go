package usecase

import (
	"time"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/pkg/utils"
)

// StalenessClassifier ages location records into display bands.
type StalenessClassifier struct {
	live      time.Duration
	recent    time.Duration
	hardStale time.Duration
}

func NewStalenessClassifier(live, recent, hardStale time.Duration) *StalenessClassifier {
	return &StalenessClassifier{live: live, recent: recent, hardStale: hardStale}
}

// Classify maps the age of the last scan to a band. Negative ages (clock
// skew) count as live.
func (s *StalenessClassifier) Classify(age time.Duration) entity.Staleness {
	switch {
	case age < s.live:
		return entity.StalenessLive
	case age <= s.recent:
		return entity.StalenessRecent
	default:
		return entity.StalenessStale
	}
}

func (s *StalenessClassifier) Color(status entity.Staleness) string {
	switch status {
	case entity.StalenessLive:
		return utils.COLOR_LIVE
	case entity.StalenessRecent:
		return utils.COLOR_RECENT
	default:
		return utils.COLOR_STALE
	}
}

// HardStale reports whether a record is too old to appear in snapshots at all.
func (s *StalenessClassifier) HardStale(age time.Duration) bool {
	return age > s.hardStale
}
