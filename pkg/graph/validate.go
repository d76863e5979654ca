package graph

import "fmt"

// Severity classifies a validation finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is a single validation result.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
}

// Finding codes.
const (
	FindingDeadEnd          = "dead_end"
	FindingIsolated         = "isolated"
	FindingUnknownProcedure = "unknown_procedure_node"
	FindingEmptyProcedure   = "empty_procedure"
)

// Validate inspects the graph and reports findings in node declaration
// order. Dead ends (no outgoing transitions) are warnings since every
// workflow has terminal actions. Isolated nodes (no transitions at all)
// and procedures referencing unknown nodes are errors.
func (g *Graph) Validate() []Finding {
	var findings []Finding

	for _, id := range g.nodeOrder {
		in := len(g.incoming[id])
		out := len(g.outgoing[id])
		switch {
		case in == 0 && out == 0:
			findings = append(findings, Finding{
				Severity: SeverityError,
				Code:     FindingIsolated,
				Message:  fmt.Sprintf("node %q has no transitions", id),
				NodeID:   id,
			})
		case out == 0:
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingDeadEnd,
				Message:  fmt.Sprintf("node %q has no outgoing transitions", id),
				NodeID:   id,
			})
		}
	}

	for _, p := range g.procedures {
		if len(p.Actions) == 0 {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Code:     FindingEmptyProcedure,
				Message:  fmt.Sprintf("procedure %q declares no actions", p.ID),
			})
			continue
		}
		for _, action := range p.Actions {
			if !g.HasNode(action) {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Code:     FindingUnknownProcedure,
					Message:  fmt.Sprintf("procedure %q references unknown node %q", p.ID, action),
					NodeID:   action,
				})
			}
		}
	}

	return findings
}

func errorFindings(findings []Finding) []Finding {
	var errs []Finding
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	return errs
}
