// Package metrics provides Prometheus exporters for the progression engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for achievement, mission and reward activity.
var (
	AchievementsObtainedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_obtained_total",
			Help: "Total number of achievements obtained by users",
		},
		[]string{"achievement"},
	)

	MissionsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missions_completed_total",
			Help: "Total number of missions completed by users",
		},
		[]string{"mission", "type"},
	)

	MissionRewardsClaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_rewards_claimed_total",
			Help: "Total number of mission rewards claimed",
		},
		[]string{"mission"},
	)

	PointsGrantedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_granted_total",
			Help: "Total points granted to users, by source",
		},
		[]string{"source"},
	)

	LevelUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of user level promotions",
		},
		[]string{"level_name"},
	)

	MalformedDefinitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "malformed_definitions_total",
			Help: "Definitions skipped during evaluation because their criteria could not be parsed",
		},
		[]string{"kind"},
	)

	SightingEvaluationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sighting_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one sighting event against all definitions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"tracker"},
	)
)

// RecordAchievementObtained records a newly obtained achievement.
func RecordAchievementObtained(achievement string) {
	AchievementsObtainedTotal.WithLabelValues(achievement).Inc()
}

// RecordMissionCompleted records a newly completed mission.
func RecordMissionCompleted(mission, missionType string) {
	MissionsCompletedTotal.WithLabelValues(mission, missionType).Inc()
}

// RecordMissionRewardClaimed records a successful reward claim.
func RecordMissionRewardClaimed(mission string) {
	MissionRewardsClaimedTotal.WithLabelValues(mission).Inc()
}

// RecordPointsGranted adds granted points for a source ("sighting" or "mission").
func RecordPointsGranted(source string, points int) {
	PointsGrantedTotal.WithLabelValues(source).Add(float64(points))
}

// RecordLevelUp records a level promotion.
func RecordLevelUp(levelName string) {
	LevelUpsTotal.WithLabelValues(levelName).Inc()
}

// RecordMalformedDefinition records a definition skipped for a bad criteria map.
func RecordMalformedDefinition(kind string) {
	MalformedDefinitionsTotal.WithLabelValues(kind).Inc()
}

// ObserveEvaluationDuration records how long one tracker pass took.
func ObserveEvaluationDuration(tracker string, seconds float64) {
	SightingEvaluationDurationSeconds.WithLabelValues(tracker).Observe(seconds)
}
