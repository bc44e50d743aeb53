package host

import "strings"

// DefaultHomepage is loaded when the shell is started without a link.
const DefaultHomepage = "https://maps.apple.com/"

// ResolveLaunchURL maps the link the shell was started with to the first URL
// to load. geo:LAT,LON links are opened centred on the coordinates; anything
// else is passed through and still goes through navigation checks.
func ResolveLaunchURL(data, homepage string) string {
	if homepage == "" {
		homepage = DefaultHomepage
	}
	data = strings.TrimSpace(data)
	switch {
	case data == "":
		return homepage
	case len(data) > len("geo:") && strings.EqualFold(data[:len("geo:")], "geo:"):
		return strings.TrimSuffix(homepage, "/") + "/frame?center=" + data[len("geo:"):]
	default:
		return data
	}
}
