// Package analyzer detects structural and behavioural patterns in a
// weighted transition graph: strongly connected components, loop
// classes, DFS edge classes, congestion bottlenecks and automation
// candidates.
//
// The analyzer holds read-only references to the graph and the weight
// store and allocates fresh result structures on every call. Nothing
// is cached, so results always reflect the weights at call time.
package analyzer
