// Package viewer holds the client-side course viewer logic that does not depend on a UI toolkit.
//
//   - [State] : navigation across sections and the optimistic completion maps
//   - [Scheduler] : when to ask the server for today's check-in status and when to prompt
//   - [Clock] : the time source, replaceable so date rollover can be simulated
package viewer
