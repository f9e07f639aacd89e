// Package auth implements the Authorization Code flow with PKCE for a public client.
//
// # Starting a flow
//
// [Initiator.Start] generates a code verifier and state nonce, stores them in a [FlowStore]
// under a flow id and returns the authorization URL. Nothing secret leaves the process:
// only the S256 challenge is sent to the provider.
//
// # Callback
//
// [CallbackHandler.Handle] drives a [Machine] through
//
//	AwaitingParams -> ValidatingState -> ExchangingToken -> FetchingProfile -> FetchingPlaylists -> Ready
//
// with [Failed] reachable from every non-terminal state. Provider errors, a missing code and
// a state mismatch all stop the flow before the token endpoint is contacted. The stored flow
// state is single-use and removed after a successful exchange.
//
// # Errors
//
//   - [shared.ErrConfigMissing] : no usable client id
//   - [shared.ErrCryptoUnavailable] : secure random source failed
//   - [shared.ErrProviderDenied], [shared.ErrNoCode], [shared.ErrStateMismatch] : rejected callback
//   - [shared.ErrMissingCredentials] : verifier or client id gone before the exchange
//   - [shared.ErrTokenExchange] : token endpoint failure, as a [shared.HTTPError] when it answered
package auth
