package workflow

// Severity indicates how serious a validation issue is.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Issue is a single validation finding.
type Issue struct {
	Type     string   `json:"type"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Complexity classifies a graph by size.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Complexity thresholds. Monotonic in both node and connection counts:
// at or below the simple bounds on both axes is simple, above the complex
// bound on either axis is complex, everything between is medium.
const (
	simpleMaxNodes        = 5
	simpleMaxConnections  = 5
	complexMinNodes       = 13
	complexMinConnections = 16
)

// ClassifyComplexity maps node and connection counts to a complexity class.
func ClassifyComplexity(nodes, connections int) Complexity {
	if nodes >= complexMinNodes || connections >= complexMinConnections {
		return ComplexityComplex
	}
	if nodes <= simpleMaxNodes && connections <= simpleMaxConnections {
		return ComplexitySimple
	}
	return ComplexityMedium
}

// Stats summarizes graph size for a verdict.
type Stats struct {
	TotalNodes       int        `json:"total_nodes"`
	TotalConnections int        `json:"total_connections"`
	Complexity       Complexity `json:"complexity"`
}

// Verdict is the outcome of structural validation. Valid is false exactly
// when at least one error has critical severity.
type Verdict struct {
	Valid           bool    `json:"valid"`
	Errors          []Issue `json:"errors"`
	Warnings        []Issue `json:"warnings"`
	NodeCount       int     `json:"node_count"`
	ConnectionCount int     `json:"connection_count"`
	Stats           Stats   `json:"stats"`
}

// HasCritical reports whether any error carries critical severity.
func (v *Verdict) HasCritical() bool {
	for _, issue := range v.Errors {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
