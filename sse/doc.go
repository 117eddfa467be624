// Package sse implements the client side of the event-stream framing used
// for pushing server events over a single HTTP response body.
//
// [Parser] is a push parser: feed it byte chunks as they arrive and it
// reports each completed [Record]. Output does not depend on how the
// transport split the bytes into chunks.
//
// [Fetcher] issues an HTTP request, turns non-success statuses into
// [answer.TransportError] values, and streams the body through a Parser,
// invoking a callback with the data of every event record:
//
//	f := sse.NewFetcher()
//	err := f.Fetch(ctx, sse.Request{
//	    Method: http.MethodPost,
//	    URL:    "https://example.com/stream",
//	    Body:   payload,
//	}, func(data string) {
//	    fmt.Println(data)
//	})
package sse
