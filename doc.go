// Package authcore is an authentication and session-lifecycle subsystem
// that sits between client applications, a hosted identity provider, and
// an application-level profile store.
//
// The package turns raw identity-provider responses into a stable, typed
// session and user-profile model, keeps access tokens valid through
// deduplicated and proactively scheduled refreshes, guarantees
// exactly-once profile creation under concurrent sign-up, and presents a
// closed taxonomy of retryable and non-retryable errors with
// display-safe messages.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Service], [SessionContext],
// [Builder], [Config], the [AuthError] taxonomy, and value types. Session
// ownership lives in the session subpackage, profile reconciliation in
// the profile subpackage, and the identity-provider client in the
// provider subpackage. Retry policies and audit dispatch live under
// internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Verify credentials or issue tokens; the identity provider is the
//     source of truth for both.
//   - Expose raw provider error text to callers; user-visible messages
//     always come from the fixed user-message table.
//   - Hold ambient global state. The signup limiter and the request
//     deduplication map are owned by their instances.
//
// # Concurrency contract
//
// One logical [SessionContext] exists per client context. Deduplicated
// calls for the same key are serialized in effect: one underlying
// execution, many observers. Refresh and Clear on the session manager
// never interleave such that a cleared session leaves a freshly
// refreshed token persisted.
package authcore
