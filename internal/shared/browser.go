package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// openers maps GOOS to the command that hands a URL to the desktop's default browser.
var openers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// browserCommand validates rawURL and builds the command that opens it. Only http and https URLs
// are accepted.
func browserCommand(rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: not a web URL: %q", ErrInvalidArgument, rawURL)
	}

	rt := getRuntime()
	opener, ok := openers[rt]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}

	args := append(opener[1:len(opener):len(opener)], u.String())
	return exec.Command(opener[0], args...), nil
}

// OpenBrowser opens a video (or any web page) in the default system browser without waiting for it.
func OpenBrowser(rawURL string) error {
	cmd, err := browserCommand(rawURL)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return cmd.Process.Release()
}
