// Package browser hands a loaded page over to a web browser.
package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Launcher opens URLs in the configured browser, a detected one, or the
// system default handler
type Launcher struct {
	command string   // configured browser command, empty for auto-detect
	args    []string // additional arguments for the browser
	goos    string
	logger  *slog.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
	run      func(name string, args ...string) error
}

// launchPath defines a single way to launch a browser
type launchPath struct {
	path      string   // Command path: "firefox" or "open-a:AppName"
	openFlags []string // For "open-a:" paths only - flags for macOS open command
}

// browserConfig holds platform-specific launch paths for a browser
type browserConfig struct {
	newWindowFlag string
	platforms     map[string][]launchPath // Platform -> launch paths to try in order
}

var browsers = map[string]browserConfig{
	"firefox": {
		newWindowFlag: "--new-window",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "open-a:Firefox"}},
			"linux":   {{path: "firefox"}},
			"windows": {{path: "firefox"}},
		},
	},
	"chrome": {
		newWindowFlag: "--new-window",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "open-a:Google Chrome"}},
			"linux":   {{path: "google-chrome"}, {path: "google-chrome-stable"}},
			"windows": {{path: "chrome"}},
		},
	},
	"chromium": {
		newWindowFlag: "--new-window",
		platforms: map[string][]launchPath{
			"linux": {{path: "chromium"}, {path: "chromium-browser"}},
		},
	},
	"safari": {
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:Safari"}},
		},
	},
	"edge": {
		newWindowFlag: "--new-window",
		platforms: map[string][]launchPath{
			"windows": {{path: "msedge"}},
		},
	},
}

// candidateBrowsers defines the preferred browser order for each platform
var candidateBrowsers = map[string][]string{
	"darwin":  {"safari", "chrome", "firefox"},
	"linux":   {"firefox", "chrome", "chromium"},
	"windows": {"edge", "chrome", "firefox"},
}

// ErrNoBrowser is returned when no candidate browser could be started
var ErrNoBrowser = errors.New("no candidate browsers found")

// NewLauncher creates a Launcher for the current platform
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  command,
		args:     args,
		goos:     runtime.GOOS,
		logger:   logger,
		lookPath: exec.LookPath,
		start:    func(name string, args ...string) error { return exec.Command(name, args...).Start() },
		run:      func(name string, args ...string) error { return exec.Command(name, args...).Run() },
	}
}

// Launch opens url in the configured browser or, failing that, the first
// available candidate, and finally the system default handler
func (l *Launcher) Launch(url string) error {
	// Tier 1: User configured a specific browser
	if l.command != "" {
		l.logger.Info("using configured browser", "command", l.command)
		return l.launchConfigured(url)
	}

	// Tier 2: Try candidate chain
	if name, err := l.detectAndLaunch(url); err == nil {
		l.logger.Info("launched with detected browser", "browser", name)
		return nil
	}

	// Tier 3: Fall back to system default (open/xdg-open/start)
	l.logger.Info("no candidate browsers found, using system default")
	return l.launchDefault(url)
}

// detectAndLaunch tries candidate browsers in order
func (l *Launcher) detectAndLaunch(url string) (string, error) {
	candidates, ok := candidateBrowsers[l.goos]
	if !ok {
		candidates = candidateBrowsers["linux"]
	}

	for _, name := range candidates {
		cfg, ok := browsers[name]
		if !ok {
			continue
		}
		paths, ok := cfg.platforms[l.goos]
		if !ok {
			l.logger.Debug("browser not available on this platform", "browser", name, "platform", l.goos)
			continue
		}

		for _, lp := range paths {
			var err error
			if app, isApp := strings.CutPrefix(lp.path, "open-a:"); isApp {
				err = l.openWithApp(app, url, nil, lp.openFlags)
			} else {
				err = l.launchCommand(lp.path, url, nil)
			}
			if err == nil {
				return name, nil
			}
			l.logger.Debug("launch path not available", "browser", name, "path", lp.path, "error", err)
		}
	}

	return "", ErrNoBrowser
}

// openWithApp opens url with a macOS app via "open -a"; Run waits so a
// missing app is reported as an error
func (l *Launcher) openWithApp(app, url string, appArgs, openFlags []string) error {
	cmdArgs := append([]string{}, openFlags...)
	cmdArgs = append(cmdArgs, "-a", app)
	if len(appArgs) > 0 {
		cmdArgs = append(cmdArgs, "--args")
		cmdArgs = append(cmdArgs, appArgs...)
	}
	cmdArgs = append(cmdArgs, url)
	return l.run("open", cmdArgs...)
}

// launchCommand starts a command found in PATH without waiting for it
func (l *Launcher) launchCommand(command, url string, args []string) error {
	if _, err := l.lookPath(command); err != nil {
		return err
	}
	cmdArgs := append(append([]string{}, args...), url)
	return l.start(command, cmdArgs...)
}

// launchConfigured launches the configured browser, adding its new-window
// flag when the browser is known and no args were configured
func (l *Launcher) launchConfigured(url string) error {
	args := append([]string{}, l.args...)
	if len(args) == 0 {
		base := strings.ToLower(filepath.Base(l.command))
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if cfg, ok := browsers[base]; ok && cfg.newWindowFlag != "" {
			args = append(args, cfg.newWindowFlag)
		}
	}

	l.logger.Info("launching browser", "command", l.command, "args", args, "url", url)

	// On macOS, GUI apps outside PATH are started through 'open -a'
	if l.goos == "darwin" {
		if _, err := l.lookPath(l.command); err != nil {
			return l.openWithApp(l.command, url, args, nil)
		}
	}

	if err := l.start(l.command, append(args, url)...); err != nil {
		return fmt.Errorf("failed to launch %s: %w", l.command, err)
	}
	return nil
}

// launchDefault opens the URL using the system default handler
func (l *Launcher) launchDefault(url string) error {
	var name string
	var args []string

	switch l.goos {
	case "darwin":
		name, args = "open", []string{url}
	case "windows":
		name, args = "cmd", []string{"/c", "start", "", url}
	default:
		// Linux and other Unix-like systems
		name, args = "xdg-open", []string{url}
	}

	l.logger.Info("launching with system default", "os", l.goos, "url", url)
	return l.start(name, args...)
}
