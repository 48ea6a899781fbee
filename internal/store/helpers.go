package store

import (
	"database/sql"
	"math"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

func responseTimeStats(avg, min, max sql.NullFloat64) domain.ResponseTimeStats {
	var stats domain.ResponseTimeStats
	if avg.Valid {
		v := round3(avg.Float64)
		stats.Avg = &v
	}
	if min.Valid {
		v := round3(min.Float64)
		stats.Min = &v
	}
	if max.Valid {
		v := round3(max.Float64)
		stats.Max = &v
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
