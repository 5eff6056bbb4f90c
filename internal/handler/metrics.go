package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_registrations_total",
		Help: "Total number of successful registrations.",
	})
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_logins_total",
		Help: "Total number of login attempts by outcome.",
	}, []string{"outcome"})
	csrfRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_csrf_rejections_total",
		Help: "Total number of requests rejected by the CSRF check.",
	}, []string{"reason"})
	sessionValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatty_session_validations_total",
		Help: "Total number of session validations by outcome.",
	}, []string{"outcome"})
	messagesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_messages_created_total",
		Help: "Total number of messages created.",
	})
)
