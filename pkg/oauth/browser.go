package oauth

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser opens url in the user's web browser and returns without
// waiting for it. The BROWSER environment variable, when set, names the
// command to run (extra words become leading arguments); otherwise the
// platform opener is used. Callers should fall back to printing the URL
// when an error is returned.
func OpenBrowser(url string) error {
	argv := openerArgv()
	if len(argv) == 0 {
		return fmt.Errorf("no browser opener for platform %s", runtime.GOOS)
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return fmt.Errorf("browser opener %q not found: %w", argv[0], err)
	}

	cmd := exec.Command(argv[0], append(argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	// The browser detaches; reap the opener once it exits.
	go cmd.Wait()
	return nil
}

func openerArgv() []string {
	if custom := strings.Fields(os.Getenv("BROWSER")); len(custom) > 0 {
		return custom
	}
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		// start via cmd mangles URLs containing &; the DLL handler does not.
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open"}
	}
	return nil
}
