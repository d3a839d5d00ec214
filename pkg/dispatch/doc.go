// Package dispatch delivers an operator's campaign to a list of recipients,
// one message at a time.
//
// A campaign goes through these steps:
//
//  1. The lockout guard and the required fields are checked.
//  2. Recipients are split on newlines and commas, trimmed, and stripped of
//     unsubscribed addresses. Order and duplicates are kept.
//  3. The quota ledger must admit the whole list; otherwise nothing is sent.
//  4. Each recipient gets a freshly composed message with a rotated subject
//     and greeting. Every confirmed delivery is recorded in the ledger.
//  5. A random delay separates deliveries.
//
// The first delivery failure aborts the remaining recipients. Messages
// already sent stay counted, and nothing is retried.
//
// In ModeSync, Submit blocks until the campaign ends. In ModeAsync it returns
// an Ack as soon as the campaign is admitted, and a background worker
// delivers it, detached from the request context.
//
// Interrupt stops every running campaign before its next recipient. Wire it
// as a lockout engage hook so a full reset also ends campaigns in flight:
//
//	lockout.WithEngageHook("campaigns", dispatcher.Interrupt)
package dispatch
