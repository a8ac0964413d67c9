// Package harness runs scripted app sessions and checks what they did.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: thread_reply
//	description: "What this scenario validates"
//	screen: thread            # app (default) or thread
//	props: { rootMsgId: "%root" }
//	setup:
//	  self: "@me.ed25519"
//	  storage: { lastSessionTimestamp: "1700000000" }
//	  log:
//	    - { key: "%root", author: "@alice", content: { type: post, text: hi } }
//	steps:
//	  - ui: { selector: feed, type: react, as: reaction, payload: { msgKey: "%root", expression: "👍" } }
//	  - bus: { type: triggerMsgCypherlink, msgId: "%root" }
//	  - back: true
//	  - dialog: { select: forget }
//	assertions:
//	  - type: trace_contains
//	    key: "#ssb"
//	    payload: { type: publish }
//
// # Assertion Types
//
//   - trace_contains: an effect with the key whose payload contains the given subset
//   - trace_order: effects with the given keys appear in order
//   - trace_count: an effect key appears exactly N times
//   - final_state: the value at a dotted path of the final state
//   - navigation: the navigation stack, bottom first
//
// # Deterministic Runs
//
// Every run uses a fresh in-memory store, sequential message and dialog ids,
// and a fixed session id. Steps drain the loop before the next one starts,
// and dialog answers are waited for, so the same scenario always records
// the same trace. Golden files compare the effect lines of that trace.
package harness
