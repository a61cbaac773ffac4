package oauth

import (
	"fmt"
	"regexp"
	"strings"
)

// authParamRegex matches key="value" and key=token pairs.
var authParamRegex = regexp.MustCompile(`([\w-]+)=(?:"([^"]*)"|([^,\s]+))`)

// Challenge is one WWW-Authenticate challenge, e.g.
//
//	Bearer authorization_uri=https://login.microsoftonline.com/<tenant>
//	Basic realm="https://dev.azure.com/"
type Challenge struct {
	Scheme string
	// Params holds the auth parameters with lower-cased keys.
	Params map[string]string
}

// ParseChallenge parses a WWW-Authenticate header value holding a single
// challenge.
func ParseChallenge(header string) (*Challenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	scheme, rest, _ := strings.Cut(header, " ")
	c := &Challenge{Scheme: scheme, Params: make(map[string]string)}
	for _, m := range authParamRegex.FindAllStringSubmatch(rest, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		c.Params[strings.ToLower(m[1])] = value
	}
	return c, nil
}

// ParseChallenges parses every header value and drops the unparsable
// ones.
func ParseChallenges(values []string) []*Challenge {
	var out []*Challenge
	for _, v := range values {
		if c, err := ParseChallenge(v); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// IsBearer reports whether the challenge asks for an OAuth bearer token.
func (c *Challenge) IsBearer() bool {
	return strings.EqualFold(c.Scheme, "Bearer")
}

// AuthorizationURI returns the login authority the resource points at:
// the authorization_uri parameter, or a realm that is a URL.
func (c *Challenge) AuthorizationURI() string {
	if v := c.Params["authorization_uri"]; v != "" {
		return v
	}
	if realm := c.Params["realm"]; strings.HasPrefix(realm, "https://") || strings.HasPrefix(realm, "http://") {
		return realm
	}
	return ""
}
