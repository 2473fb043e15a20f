package printer

import (
	"fmt"
	"net/url"
	"regexp"
)

// containerHost is the alias under which the browser container reaches
// services published on the host's loopback interface.
const containerHost = "host.docker.internal"

var loopbackHost = regexp.MustCompile(`^(localhost|127\.0\.0\.1|0\.0\.0\.0)$`)

// Target is the resolved navigation target for one generation attempt.
type Target struct {
	// URL is the effective front-end origin to navigate to.
	URL string
	// RewriteAssets reports whether the storage origin points at loopback,
	// in which case asset requests must be rewritten inside the browser.
	RewriteAssets bool
	// StorageURL is the configured storage origin as the page will request it.
	StorageURL string
}

// ResolveTarget computes the externally reachable URL of the front end.
// A loopback origin means the dev/compose topology: the browser runs in a
// container and must reach the host through the container alias, port
// preserved. A non-loopback public origin is never rewritten. Pure; malformed
// origins are a configuration error, caught at startup.
func ResolveTarget(publicURL, storageURL string) (Target, error) {
	public, err := url.Parse(publicURL)
	if err != nil {
		return Target{}, fmt.Errorf("parse public url: %w", err)
	}
	storage, err := url.Parse(storageURL)
	if err != nil {
		return Target{}, fmt.Errorf("parse storage url: %w", err)
	}

	target := Target{
		URL:           publicURL,
		RewriteAssets: isLoopback(storage),
		StorageURL:    storageURL,
	}
	if isLoopback(public) {
		target.URL = rewriteHost(public)
	}
	return target, nil
}

// RewriteAssetURL maps a storage-origin request URL to the container alias,
// port preserved. Non-loopback URLs pass through unchanged.
func RewriteAssetURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !isLoopback(u) {
		return raw
	}
	return rewriteHost(u)
}

func isLoopback(u *url.URL) bool {
	return loopbackHost.MatchString(u.Hostname())
}

// rewriteHost replaces only the host component, keeping any port.
func rewriteHost(u *url.URL) string {
	rewritten := *u
	if port := u.Port(); port != "" {
		rewritten.Host = containerHost + ":" + port
	} else {
		rewritten.Host = containerHost
	}
	return rewritten.String()
}
