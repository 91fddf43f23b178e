package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuppush_votes_total",
		Help: "Votes cast, by value and outcome.",
	}, []string{"value", "outcome"})

	BoostSalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuppush_boost_sales_total",
		Help: "Promotions purchased, by plan and purchase method.",
	}, []string{"plan", "method"})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuppush_notifications_dispatched_total",
		Help: "Notification events handled by the dispatcher, by result.",
	}, []string{"result"})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuppush_moderation_actions_total",
		Help: "Moderation transitions applied, by resource and action.",
	}, []string{"resource", "action"})

	PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "startuppush_points_awarded_total",
		Help: "Point ledger entries written, by category.",
	}, []string{"category"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "startuppush_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
