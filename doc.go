// Package bridge serves the HTTP side of a Sign in with Apple credential bridge.
//
// Apple registers a product under two client identities: the app bundle ID used
// by native iOS sign-in and a Services ID used by web and Android sign-in. An
// authorization code is bound to whichever identity requested it, and callers
// usually cannot tell which. The bridge tries both, minting a short-lived ES256
// client assertion for each attempt.
//
// Endpoints:
//
//	GET|POST /callback            Apple redirect target; 307 to the Android intent deep link
//	POST     /exchange-token      {"authorizationCode": "..."} -> tokens
//	POST     /revoke-apple-token  revokes a refresh or access token
//	GET      /healthz             reports whether client assertions can be minted
//
// Basic usage:
//
//	cfg, err := bridge.LoadConfigFromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	srv, err := bridge.NewServer(cfg, logger, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(cfg.ListenAddr, bridge.NewHandler(srv, logger).Router())
//
// The callback is fail-open by default: when the code exchange fails the user
// is still sent back to the app, only without tokens.
package bridge
