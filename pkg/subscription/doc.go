// Package subscription tracks which clients want which event types.
//
// Clients subscribe to named event types (for example pattern_complete
// or pattern_error) and the server fans each event out to the
// subscribed set in addition to the client that triggered it. A
// subscription is just a membership record; it carries no interval or
// coalescing semantics and does not survive a server restart.
package subscription
