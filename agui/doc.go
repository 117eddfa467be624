// Package agui maps answer calls onto the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an event-based protocol that standardizes
// how agents stream to user-facing applications. A call becomes one AG-UI
// run:
//
//	RUN_STARTED
//	TEXT_MESSAGE_START            first answer
//	TEXT_MESSAGE_CONTENT ...      growth of the answer text
//	TEXT_MESSAGE_END              on completion, if a message was started
//	RUN_FINISHED | RUN_ERROR
//
// Answers carry cumulative text; the [Mapper] turns them into deltas. When
// an answer does not extend the text sent so far, the current message is
// ended and a new one started.
//
// # Usage
//
//	input, err := req.Prepare()
//	call, err := provider.GenerateAnswer(ctx, input.Prompt, input.Options()...)
//	mapper := agui.NewMapper(input.ThreadID, input.RunID)
//	for ev := range mapper.MapStream(ctx, call) {
//	    writeEvent(ev)
//	}
//
// The Mapper is not safe for concurrent use. Create one per run.
package agui
