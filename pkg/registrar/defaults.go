package registrar

const (
	defaultServicePort = 8080
	defaultHost        = "localhost"
	defaultEnvironment = "default"

	schemeHTTP  = "http"
	schemeHTTPS = "https"

	attemptsMetric = "monitoring.registration.attempts"
	durationMetric = "monitoring.registration.duration"
)
