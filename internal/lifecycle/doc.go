// Package lifecycle holds the ticket state machine.
//
// Transitions are pure functions over (ticket, action, now) that return the
// next ticket state together with the side effects the caller must run once
// the new state has been persisted. Nothing here touches storage, the chat
// platform, or timers; the service layer interprets the effects.
//
//	open -> claimed -> pending_feedback -> closed
//	open ------------> pending_feedback
//
// Escalation is a flag on the ticket, not a state.
package lifecycle
