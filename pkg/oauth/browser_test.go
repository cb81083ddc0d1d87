package oauth

import (
	"runtime"
	"strings"
	"testing"
)

func TestOpenerArgv_BrowserOverride(t *testing.T) {
	t.Setenv("BROWSER", "firefox --new-tab")

	argv := openerArgv()
	if len(argv) != 2 || argv[0] != "firefox" || argv[1] != "--new-tab" {
		t.Errorf("openerArgv() = %v, want [firefox --new-tab]", argv)
	}
}

func TestOpenerArgv_PlatformDefault(t *testing.T) {
	t.Setenv("BROWSER", "")

	argv := openerArgv()
	if runtime.GOOS == "windows" {
		if len(argv) == 0 || argv[0] != "rundll32" {
			t.Errorf("openerArgv() = %v, want rundll32 handler", argv)
		}
		return
	}
	if len(argv) != 1 {
		t.Fatalf("openerArgv() = %v, want a single opener", argv)
	}
	switch argv[0] {
	case "open", "xdg-open":
	default:
		t.Errorf("unexpected opener %q", argv[0])
	}
}

func TestOpenBrowser_MissingOpener(t *testing.T) {
	t.Setenv("BROWSER", "httpcraft-test-no-such-browser")

	err := OpenBrowser("https://example.com/authorize")
	if err == nil {
		t.Fatal("expected error for a missing opener command")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want opener-not-found", err)
	}
}

func TestOpenBrowser_RunsOverride(t *testing.T) {
	// true(1) stands in for a browser; OpenBrowser must not wait on it.
	t.Setenv("BROWSER", "true")

	if err := OpenBrowser("https://example.com/authorize"); err != nil {
		t.Fatalf("OpenBrowser() failed: %v", err)
	}
}
