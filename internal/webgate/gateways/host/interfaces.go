package host

import "context"

// Dialer hands a tel: URL to the platform's telephony dial intent.
// The engine never places calls itself.
type Dialer interface {
	Dial(ctx context.Context, telURL string) error
}

// Prompter asks the user whether a disallowed-but-secure destination
// should be opened anyway.
type Prompter interface {
	Confirm(ctx context.Context, url string) (bool, error)
}

// ExternalOpener opens a URL outside the shell, e.g. in the system browser.
type ExternalOpener interface {
	Open(ctx context.Context, url string) error
}
