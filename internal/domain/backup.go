package domain

import "net/http"

// Result is the outcome of one backup invocation. Its JSON form is what the
// Lambda handler returns.
type Result struct {
	StatusCode   int      `json:"statusCode"`
	Body         string   `json:"body"`
	Kind         Kind     `json:"kind,omitempty"`
	Key          string   `json:"key,omitempty"`
	InvocationID string   `json:"invocationId,omitempty"`
	Pruned       int      `json:"pruned"`
	Warnings     []string `json:"warnings,omitempty"`
}

func (r Result) OK() bool {
	return r.StatusCode == http.StatusOK
}
