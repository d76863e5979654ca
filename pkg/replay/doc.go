/*
Package replay measures prediction accuracy by driving an engine with a
recorded event log.

Each transition event is scored before it is recorded: the replayer asks
the engine for its top-k candidates from the event's origin node, checks
whether the destination actually taken is among them, and only then
feeds the transition back so the engine keeps learning as the log
advances. Events consumed before the engine's warmup threshold train the
weights but are excluded from the hit rate.

# Usage

	events, err := replay.ReadLog(file)
	if err != nil {
		log.Fatal(err)
	}
	report, err := replay.New(engine, replay.WithTopK(3)).Run(ctx, events)
	if err != nil {
		log.Fatal(err)
	}
	report.Text(os.Stdout)
*/
package replay
