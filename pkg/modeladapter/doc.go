// Package modeladapter defines how agents talk to hosted language models.
//
// It contains:
//   - [Completer], the single operation an agent needs from a model
//   - [Client], an embeddable HTTP base holding the base URL, auth, and
//     *http.Client shared by every model bound to the same provider
//   - [Breaker], an optional circuit breaker around any Completer
//
// Nothing here retries. Provider wire formats live in sub-packages of
// pkg/providers.
package modeladapter
