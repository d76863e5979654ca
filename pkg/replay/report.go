package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// NodeReport is the accuracy slice for one origin node.
type NodeReport struct {
	Node    string  `json:"node"`
	Scored  int     `json:"scored"`
	Hits    int     `json:"hits"`
	HitRate float64 `json:"hit_rate"`
}

// Report is the outcome of a replay run.
//
// Scored counts predictions evaluated after warmup completed; Warmup
// counts transitions that only trained the weights. Skipped rows were
// not scoreable transitions and Rejected rows named pairs outside the
// graph.
type Report struct {
	Events   int          `json:"events"`
	Scored   int          `json:"scored"`
	Hits     int          `json:"hits"`
	HitRate  float64      `json:"hit_rate"`
	Warmup   int          `json:"warmup"`
	Skipped  int          `json:"skipped"`
	Rejected int          `json:"rejected"`
	TopK     int          `json:"top_k"`
	Nodes    []NodeReport `json:"nodes,omitempty"`
}

// Text writes a human-readable summary with a per-node table.
func (r *Report) Text(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Replayed %d events: %d scored, %d hits (%.1f%% top-%d)\n",
		r.Events, r.Scored, r.Hits, r.HitRate*100, r.TopK); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Warmup consumed %d, skipped %d, rejected %d.\n",
		r.Warmup, r.Skipped, r.Rejected); err != nil {
		return err
	}
	if len(r.Nodes) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "\nNODE\tSCORED\tHITS\tRATE")
	for _, n := range r.Nodes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", n.Node, n.Scored, n.Hits, n.HitRate*100)
	}
	return tw.Flush()
}

// JSON writes the report as indented JSON.
func (r *Report) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
