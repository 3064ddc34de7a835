package server

// IntentURI builds an Android intent URI that opens the app identified by
// packageID through its scheme://host intent filter:
//
//	intent://callback?code=abc#Intent;package=com.example.app;scheme=signinwithapple;end
//
// query must already be encoded.
func IntentURI(host, query, packageID, scheme string) string {
	return "intent://" + host + "?" + query +
		"#Intent;package=" + packageID +
		";scheme=" + scheme +
		";end"
}

// DeepLink returns the intent URI carrying params for the configured app
func (c *Config) DeepLink(params *ParameterSet) string {
	return IntentURI(c.DeepLinkHost, params.Encode(), c.AppPackageID, c.DeepLinkScheme)
}
