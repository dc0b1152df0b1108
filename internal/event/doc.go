/*
Package event provides the pub/sub event system for the companion server.

Components announce lifecycle changes (a turn committed to memory, a session
cleared, a reminder scheduled or fired, a response that failed) without
depending on who listens. The HTTP layer forwards them to clients on
GET /api/events, and the app remembers each session's personality from them
for reminder re-prompts.

# Architecture

Every published event is JSON encoded and sent through a watermill GoChannel
on the Topic "companion.events". Payloads are decoded back into their typed
Data structs on the receiving side, so handlers can type-assert:

	bus.Subscribe(event.TurnCommitted, func(e event.Event) {
		data := e.Data.(event.TurnCommittedData)
		log.Info().Str("sessionID", data.SessionID).Msg("turn committed")
	})

Subscribe and SubscribeAll register handlers fed by one dispatch loop; the
returned func unsubscribes. Long-lived consumers such as SSE clients
subscribe a handler that forwards into their own buffered channel.

PublishSync skips the pubsub and calls handlers in the caller's goroutine.

# Event Types

  - turn.committed: a user/assistant exchange was stored
  - session.cleared: one session history was removed
  - sessions.cleared: every session was removed
  - reminder.scheduled: the schedule_reprompt tool armed a timer
  - reminder.due: a reminder fired and the companion was re-prompted
  - response.failed: a request ended in the apology path

# Thread Safety

The bus is safe for concurrent use. Handlers run on the dispatch goroutine and
must not block for long.
*/
package event
