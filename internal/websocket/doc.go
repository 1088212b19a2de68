// Package websocket serves the live progress feed of consolidation runs.
//
// A Hub is registered as the consolidation service's operations.Publisher
// and mounted at /ws. Every connected client receives one "connection"
// message followed by the JSON encoded operations.Event of every run:
//
//	{"type":"operation:progress","operation_id":"…","source":"export.csv",
//	 "status":"running","progress":{"step":"export.csv","progress":60,
//	 "message":"filtering and sorting keywords"},"timestamp":"…"}
//
// The feed is one-way. Slow clients whose buffer fills up are disconnected
// rather than delaying other clients or the run itself.
package websocket
