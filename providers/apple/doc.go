// Package apple implements the Sign in with Apple provider.
//
// Apple does not issue static client secrets. Every call to the token and
// revocation endpoints carries a short-lived ES256 client assertion minted from
// the developer key (.p8), bound to one client identity through its subject.
//
// A product that signs in on iOS and on Android or the web is registered twice:
// once under the app bundle identifier and once under a Services ID. An
// authorization code is only redeemable by the identity it was issued for, and
// callers rarely know which one that was, so the provider tries both identities
// in a fixed order, one after another, and stops at the first success.
//
// Example:
//
//	provider, err := apple.NewProvider(&apple.Config{
//		TeamID:        "TEAM123456",
//		KeyID:         "KEY1234567",
//		PrivateKeyPEM: keyPEM,
//		BundleID:      "com.example.app",
//		ServiceID:     "com.example.app.signin",
//	})
//	if err != nil {
//		return err
//	}
//	tokens, err := provider.ExchangeCode(ctx, code, "")
package apple
