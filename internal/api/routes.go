package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/icanhazcapsim"

	SimulateRoute = "/v1/simulate"
	ExplainRoute  = "/v1/explain"

	PoliciesParent      = "/v1/policies/"
	ReloadPoliciesRoute = PoliciesParent + "reload"

	AuditParent     = "/v1/audit/"
	ListAuditsRoute = AuditParent + "runs"
)
