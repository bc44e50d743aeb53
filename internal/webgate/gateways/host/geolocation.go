package host

import (
	"net/url"
	"strings"

	"github.com/haukened/rr-webgate/internal/webgate/common/utils"
)

// GeolocationDomain is the registrable domain whose pages may read the
// device location.
const GeolocationDomain = "apple.com"

// AllowGeolocation reports whether a page origin may be granted geolocation.
// The origin must be https and belong to GeolocationDomain; look-alikes such
// as "apple.com.example" or "notapple.com" are refused. The grant is not
// remembered across calls.
func AllowGeolocation(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return false
	}
	host := utils.CanonicalHost(u.Hostname())
	return host != "" && utils.GetApexDomain(host) == GeolocationDomain
}
