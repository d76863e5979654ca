// Package compiler parses the compact .flow text format, one
// transition per line:
//
//	from -> to [actor] weight # guard
//
// Actor, weight and guard are optional, in that order. A line whose
// first character is # is a comment; on an edge line everything after
// # is the guard expression, which the engine stores but never
// evaluates.
package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/cairn/pkg/domain"
	"github.com/aretw0/cairn/pkg/graph"
)

// Parser converts .flow text into a graph definition.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes .flow content. Every node mentioned is declared as an
// action node in first-mention order, so none end up as placeholders.
// Errors carry the 1-based line number.
func (p *Parser) Parse(data []byte) (*graph.Definition, error) {
	def := &graph.Definition{}
	seen := make(map[string]bool)

	declare := func(id string) {
		if !seen[id] {
			seen[id] = true
			def.Nodes = append(def.Nodes, domain.Node{ID: id, Kind: domain.KindAction})
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		edge, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		declare(edge.From)
		declare(edge.To)
		def.Transitions = append(def.Transitions, edge)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return def, nil
}

func parseLine(raw string) (domain.Transition, bool, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return domain.Transition{}, false, nil
	}

	var guard string
	if idx := strings.Index(line, "#"); idx >= 0 {
		guard = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
		if guard == "" {
			return domain.Transition{}, false, errors.New("empty guard after '#'")
		}
	}

	parts := strings.SplitN(line, "->", 2)
	if len(parts) != 2 {
		return domain.Transition{}, false, errors.New("expected 'from -> to'")
	}

	from := strings.TrimSpace(parts[0])
	if from == "" || strings.ContainsAny(from, " \t") {
		return domain.Transition{}, false, fmt.Errorf("invalid source node %q", from)
	}

	fields := strings.Fields(parts[1])
	if len(fields) == 0 {
		return domain.Transition{}, false, errors.New("missing target node")
	}

	t := domain.Transition{From: from, To: fields[0]}
	rest := fields[1:]

	if len(rest) > 0 && strings.HasPrefix(rest[0], "[") {
		if !strings.HasSuffix(rest[0], "]") {
			return domain.Transition{}, false, fmt.Errorf("malformed actor %q", rest[0])
		}
		name := strings.TrimSuffix(strings.TrimPrefix(rest[0], "["), "]")
		actor := domain.Actor(name)
		if !actor.Valid() {
			return domain.Transition{}, false, fmt.Errorf("unknown actor %q", name)
		}
		t.Actor = actor
		rest = rest[1:]
	}

	if len(rest) > 0 {
		w, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return domain.Transition{}, false, fmt.Errorf("invalid weight %q", rest[0])
		}
		if w < 0 {
			return domain.Transition{}, false, fmt.Errorf("negative weight %v", w)
		}
		t.BaseWeight = w
		rest = rest[1:]
	}

	if len(rest) > 0 {
		return domain.Transition{}, false, fmt.Errorf("unexpected token %q", rest[0])
	}

	if guard != "" {
		t.Metadata = map[string]any{domain.MetaGuard: guard}
	}

	return t, true, nil
}
