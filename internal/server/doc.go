// Package server exposes the chat core over HTTP.
//
// Routes:
//
//	POST   /api/chat             one turn, JSON response
//	POST   /api/chat/stream      one turn as server-sent events
//	GET    /api/sessions         number of stored sessions
//	DELETE /api/sessions         clear every session
//	GET    /api/sessions/{id}    history of one session
//	DELETE /api/sessions/{id}    clear one session
//	GET    /api/personalities    available personalities
//	GET    /api/tools            registered tools
//	GET    /api/events           server-sent lifecycle events
//	GET    /health               liveness
//	GET    /metrics              Prometheus metrics
//
// Chat stream events are data-only SSE frames carrying a JSON StreamChunk:
//
//	data: {"type":"start","metadata":{"personality":"default","method":"direct"}}
//	data: {"type":"chunk","content":"Hello"}
//	data: {"type":"end","metadata":{"confidence":0.93,"responseTime":812}}
//
// Errors use a common envelope:
//
//	{"error":{"code":"INVALID_REQUEST","message":"...","details":{...}}}
//
// With debug enabled, internal errors include details.cause.
package server
