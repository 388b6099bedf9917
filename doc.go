// Package latch adds a remote "latch" second factor to a go-router web
// application. Users pair their account with a latch account once, and
// from then on every password login is allowed only while their latch
// is off.
//
// Pairing:
//   - Pairer exchanges the one time token shown by the latch app for an
//     account id and stores a PairingRecord. Unknown tokens and already
//     paired accounts come back as a *PairingValidationError meant for
//     the form the token came from.
//   - Unpairer asks the service to drop the pairing and only then deletes
//     the local record, so a remote failure never leaves the two sides
//     out of step.
//
// Login:
//   - LatchedIdentityProvider wraps any IdentityProvider. After the inner
//     backend accepts the credentials it checks the latch status of the
//     user. Unpaired users still cost a status round trip against a random
//     account id so response times do not reveal who is paired.
//   - When the status can not be read the OutagePolicy decides, denying
//     by default.
//
// Access:
//   - RequirePaired and RequireUnpaired guard routes on the pairing state
//     of the session user. Anonymous requests are sent to the login page
//     and wrong-state requests get ErrLatchForbidden.
//   - RunChecks reports missing wiring and settings at startup.
//
// Activity sinks:
//   - ActivitySink receives pairing, unpairing and denied login events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     stream or queue without blocking authentication.
package latch
