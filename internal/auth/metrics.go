package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess         = "success"
	outcomeStateInvalid    = "state_invalid"
	outcomeTokenError      = "token_error"
	outcomeUserNotResolved = "user_not_resolved"
)

var (
	loginOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "idp_login",
		Name:      "callbacks_total",
		Help:      "Provider callbacks by outcome.",
	}, []string{"outcome"})

	logoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "idp_login",
		Name:      "signouts_total",
		Help:      "Sign-outs redirected to the provider.",
	})
)
