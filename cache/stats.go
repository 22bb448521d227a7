package cache

// Stats is a point-in-time snapshot of a cache's operation counters.
// Hits and Misses count Get calls; Sets counts Set calls; Invalidations
// counts entries removed across all Invalidate/InvalidateAll calls (not
// the number of calls). HitRate is a percentage rounded to two decimals
// and is 0 until the first Get.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
	CurrentSize   int     `json:"current_size"`
}
