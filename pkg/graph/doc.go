/*
Package graph holds the static transition rules of a workflow.

A Graph is built once from a list of transitions plus optional explicit
nodes and procedures, and is immutable afterwards: no method mutates it,
so a single Graph can be shared read-only across engines and goroutines.
It answers the structural questions the rest of the system asks: which
transitions leave a node, whether a directed pair is permitted, which
nodes are entry or terminal points, and whether the authored rules are
internally consistent.
*/
package graph
