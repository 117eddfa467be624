// Package answer turns a single prompt into a stream of answer events from a
// chat backend.
//
// Every backend implements [Provider]. A call returns immediately with a
// [Call] handle whose event channel yields zero or more [EventAnswer] events
// followed by exactly one [EventDone]:
//
//	c := client.New(client.Config{
//	    Provider: answer.ProviderChatGPT,
//	})
//
//	call, err := c.GenerateAnswer(ctx, "What is the capital of France?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer call.Cleanup()
//
//	for ev := range call.Events() {
//	    switch ev.Type {
//	    case answer.EventAnswer:
//	        fmt.Println(ev.Answer.Text)
//	    case answer.EventDone:
//	        if ev.Err != nil {
//	            log.Fatal(ev.Err)
//	        }
//	    }
//	}
//
// Streaming variants emit the cumulative text on every update, so the last
// answer always holds the full reply. [Call.Text] drains a call and returns it.
//
// # Cleanup
//
// Backends that persist a conversation hide it again when [Call.Cleanup] is
// invoked, or automatically with [WithAutoCleanup]. Cleanup never blocks and
// never fails; problems are logged as [CleanupError].
//
// # Errors
//
// Failures are delivered on EventDone. Use [IsAuth], [IsAborted] and
// [IsTransient] to decide how to react. [TransportError] carries the upstream
// status and error body.
package answer
