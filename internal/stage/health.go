package stage

// Health is one readiness check result. The health endpoint serializes these
// directly, so the field tags are part of the API.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy reports a passing check.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a failing check with a human-readable reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
