// Command gen-flow seeds a demo ticket-triage workflow: a loam
// repository with one document per node and an events.jsonl log shaped
// for `cairn replay`. It exists so the examples stay reproducible.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/loam"

	loamAdapter "github.com/aretw0/cairn/pkg/adapters/loam"
	"github.com/aretw0/cairn/pkg/domain"
)

func main() {
	targetDir := "examples/ticket-triage"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	// Ensure dir exists
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating ticket-triage workflow in: %s\n", targetDir)

	// Init Loam (No Versioning = pure file generation)
	repo, err := loam.Init(targetDir, loam.WithVersioning(false))
	if err != nil {
		panic(err)
	}

	typedRepo := loam.NewTypedRepository[loamAdapter.NodeMetadata](repo)
	ctx := context.TODO()

	// 1. Inbox (entry point)
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
		ID:      "inbox",
		Content: "New tickets land here.",
		Data: loamAdapter.NodeMetadata{
			Label: "Inbox",
			Transitions: []loamAdapter.TransitionSpec{
				{To: "triage", Weight: 1},
			},
		},
	})
	check(err)

	// 2. Triage (the branch point the demo predicts on)
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
		ID:      "triage",
		Content: "Decide whether the ticket needs a reply, an escalation or can be closed.",
		Data: loamAdapter.NodeMetadata{
			Label: "Triage",
			Transitions: []loamAdapter.TransitionSpec{
				{To: "reply"},
				{To: "escalate", Guard: "severity >= high"},
				{To: "close"},
			},
		},
	})
	check(err)

	// 3. Reply
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
		ID:      "reply",
		Content: "Answer the reporter.",
		Data: loamAdapter.NodeMetadata{
			Label: "Reply",
			Transitions: []loamAdapter.TransitionSpec{
				{To: "close"},
				{To: "triage", Actor: "user"},
			},
		},
	})
	check(err)

	// 4. Escalate (automation notifies the on-call)
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
		ID:      "escalate",
		Content: "Page the on-call engineer.",
		Data: loamAdapter.NodeMetadata{
			Label: "Escalate",
			Transitions: []loamAdapter.TransitionSpec{
				{To: "close", Actor: "automation"},
			},
		},
	})
	check(err)

	// 5. Close (terminal; validate reports it as a dead end warning)
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.NodeMetadata]{
		ID:      "close",
		Content: "Ticket resolved.",
		Data: loamAdapter.NodeMetadata{
			Label: "Close",
			Kind:  "session",
		},
	})
	check(err)

	logPath := filepath.Join(targetDir, "events.jsonl")
	check(writeLog(logPath))

	fmt.Println("Done. Try:")
	fmt.Printf("  cairn validate --dir %s\n", targetDir)
	fmt.Printf("  cairn replay --dir %s %s\n", targetDir, logPath)
}

// writeLog emits a biased event log: most triaged tickets get a reply,
// a few escalate, so replay has a pattern to find.
func writeLog(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	base := time.Now().Add(-time.Hour)
	enc := json.NewEncoder(f)

	hops := []struct {
		from, to string
		actor    domain.Actor
	}{
		{"inbox", "triage", domain.ActorUser},
		{"triage", "reply", domain.ActorUser},
		{"reply", "close", domain.ActorUser},
		{"inbox", "triage", domain.ActorUser},
		{"triage", "reply", domain.ActorUser},
		{"reply", "close", domain.ActorUser},
		{"inbox", "triage", domain.ActorUser},
		{"triage", "escalate", domain.ActorUser},
		{"escalate", "close", domain.ActorAutomation},
		{"inbox", "triage", domain.ActorUser},
		{"triage", "reply", domain.ActorUser},
		{"reply", "close", domain.ActorUser},
	}

	for i, h := range hops {
		ev := domain.ActionEvent{
			ID:        fmt.Sprintf("demo-%03d", i+1),
			Type:      domain.EventTransition,
			From:      h.from,
			To:        h.to,
			Actor:     h.actor,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
