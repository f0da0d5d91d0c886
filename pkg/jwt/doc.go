// Package jwt verifies HS256 bearer tokens issued by the external auth
// provider. It wraps github.com/golang-jwt/jwt/v5 with a fixed algorithm,
// optional issuer and audience checks, and a required expiry.
//
//	svc, err := jwt.New(cfg)
//	if err != nil {
//		return err
//	}
//	token, err := jwt.BearerTokenExtractor(r)
//	if err != nil {
//		return err
//	}
//	claims, err := svc.Parse(token)
//
// Generate exists for tests and local development; production tokens are
// minted by the auth provider.
package jwt
