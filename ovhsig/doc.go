// Package ovhsig implements the OVH API request signature scheme.
//
// Every authenticated call carries four headers:
//
//	X-Ovh-Application: <application key>
//	X-Ovh-Consumer:    <consumer key>
//	X-Ovh-Timestamp:   <UNIX time corrected by the API clock offset>
//	X-Ovh-Signature:   $1$<sha1 hex>
//
// The signature is the SHA-1 digest of the "+"-joined fields
//
//	applicationSecret + consumerKey + METHOD + fullURL + body + timestamp
//
// in that exact order. The body is the serialized payload as sent on the
// wire, or an empty string.
//
// The package ships its own SHA-1 implementation (Sum, HexDigest).
//
// # Building Headers
//
// Use Headers to build the header set for a call:
//
//	h := ovhsig.Headers(&ovhsig.HeaderOptions{
//	    Credentials: ovhsig.Credentials{
//	        ApplicationKey:    ak,
//	        ApplicationSecret: as,
//	        ConsumerKey:       ck,
//	    },
//	    Method: http.MethodGet,
//	    URL:    "https://api.ovh.com/1.0/me",
//	    Offset: offset,
//	})
//
// Headers(nil) returns the content type only, for unauthenticated calls.
//
// # Signing Requests
//
// SignRequest signs an *http.Request in place:
//
//	err := ovhsig.SignRequest(req, ovhsig.SignConfig{
//	    Credentials: ovhsig.StaticCredentials{ApplicationKey: ak, ApplicationSecret: as, ConsumerKey: ck},
//	})
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that signs all outgoing
// requests. Pass nil for a clone of http.DefaultTransport:
//
//	client := &http.Client{
//	    Transport: ovhsig.NewTransport(nil, ovhsig.TransportConfig{
//	        SignConfig: ovhsig.SignConfig{
//	            Credentials: provider,
//	            Offset:      offsetFunc,
//	        },
//	    }),
//	}
//
// # Server Middleware
//
// Middleware verifies signed requests on the server side. It is used by
// the ovhtest fake API and by gateways that accept OVH-style signatures:
//
//	mw, err := ovhsig.Middleware(ovhsig.MiddlewareConfig{
//	    Verify: ovhsig.VerifyConfig{
//	        Resolver: resolver,
//	        MaxSkew:  3 * time.Minute,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler = mw(handler)
package ovhsig
