package models

// Source tags for an answer.
const (
	SourceCache = "cache"
	SourceAPI   = "api"
)

// Result is the outcome of one pipeline invocation.
type Result struct {
	Answer string `json:"response"`
	Source string `json:"source"`
}
