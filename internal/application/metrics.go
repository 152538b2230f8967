package application

import "expvar"

// Outcome counters published under /debug/vars.
var (
	registrations = expvar.NewMap("auth_registrations")
	logins        = expvar.NewMap("auth_logins")
)
