// Package chatgpt implements answer.Provider against a ChatGPT-style web
// backend.
//
// Two variants share the same event contract:
//
//   - [Completion] posts the prompt to a one-shot completion endpoint and
//     emits at most one answer.
//   - [Conversation] posts to the backend conversation endpoint and streams
//     the event-stream response, emitting an answer per update.
//
// Both resolve an access token through a [TokenSource] (by default the
// session endpoint behind a short-lived cache) and hide the conversation
// they created when the call's Cleanup is invoked.
package chatgpt
