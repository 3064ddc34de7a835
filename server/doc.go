// Package server implements the bridge's request flows independently of HTTP.
//
// The Server type turns an identity provider (see the providers package) into
// three operations:
//   - HandleCallback: the browser callback pipeline. Incoming fields are kept in
//     order, tokens from a best-effort code exchange and the decoded user
//     fragment are added, and the result is packed into an Android intent deep
//     link.
//   - ExchangeCode: a direct authorization code exchange for native clients.
//   - RevokeToken: resolution of a revocation request (which token, which
//     client identity hint) followed by revocation at the provider.
//
// Example usage:
//
//	srv, err := server.New(provider, &server.Config{
//	    AppPackageID: "com.example.android",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := srv.HandleCallback(ctx, params, clientIP)
//	http.Redirect(w, r, result.Target, http.StatusTemporaryRedirect)
package server
