// Package client puts every answer provider behind one answer.Provider.
//
// The Client adds:
//
//   - Provider selection by name, with providers created on first use
//   - A token cache shared by the chatgpt variants
//   - Retries of calls that fail transiently before any answer arrived
//   - Request lifecycle events on an optional channel
//
// # Basic Usage
//
//	c := client.New(client.Config{
//	    Provider: answer.ProviderChatGPTStream,
//	    ChatGPT:  client.ChatGPT{AccessToken: os.Getenv("CHATGPT_ACCESS_TOKEN")},
//	})
//
//	call, err := c.GenerateAnswer(ctx, "Hello!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer call.Cleanup()
//
//	for ev := range call.Events() {
//	    if ev.Answer != nil {
//	        fmt.Println(ev.Answer.Text)
//	    }
//	}
//
// Use Generate to pick another provider per call:
//
//	call, err := c.Generate(ctx, answer.ProviderAnthropic, prompt)
//
// # Events
//
// Events are sent without blocking and dropped when the channel is full:
//
//	events := make(chan client.Event, 100)
//	c := client.New(client.Config{Events: events})
//	go func() {
//	    for e := range events {
//	        log.Printf("%s %s %v", e.Type, e.Provider, e.Duration)
//	    }
//	}()
package client
