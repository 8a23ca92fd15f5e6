package port

// AuthMetrics records authentication and session outcomes.
type AuthMetrics interface {
	ObserveLogin(outcome string)
	ObserveSessionValidation(result string)
	ObserveSessionIssued()
	ObserveSessionsRevoked(reason string, count int)
	ObserveCacheError(operation string)
}
