// Package recorder builds decision records from engine evaluations and
// writes them to a decision.Storage backend.
//
// # Recording
//
// Record stores inline and returns once the write completes; the HTTP
// server uses it when a caller asks for the persisted record ID. RecordAsync
// enqueues on a buffered channel drained by a single worker; Close drains
// whatever is still buffered before returning.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	ev, err := eng.Evaluate(ctx, &input)
//	if err != nil {
//	    return err
//	}
//	record, err := rec.RecordAsync(ctx, ev, "uc-42", &input)
//
// # Hashing
//
// InputHash and ResultHash are SHA-256 digests of the JSON encodings of the
// use-case record and the DecisionResult. Together with RulesetHash they tie
// a stored tier to the exact input and ruleset that produced it.
package recorder
