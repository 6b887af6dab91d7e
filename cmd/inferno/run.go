package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/mmcdole/inferno/internal/browser"
	"github.com/mmcdole/inferno/internal/connectivity"
	"github.com/mmcdole/inferno/internal/domain"
	"github.com/mmcdole/inferno/internal/loader"
	"github.com/mmcdole/inferno/internal/service"
	"github.com/mmcdole/inferno/internal/surface"
	"github.com/mmcdole/inferno/internal/tui"
	"github.com/mmcdole/inferno/internal/tui/styles"
)

// runShell wires the load pipeline and runs the UI until the user quits
// (or, headless, until the load settles)
func runShell(ctx context.Context, a *app, headless bool, out io.Writer) error {
	cfg, logger := a.cfg, a.logger
	logger.Info("starting inferno", "version", Version, "build", Build)

	helper, err := a.helper()
	if err != nil {
		return err
	}
	if !helper.ValidateEndpoint(cfg.Endpoint.URL) {
		return fmt.Errorf("%w: %s", domain.ErrEndpointRejected, cfg.Endpoint.URL)
	}

	st, err := a.openStore(helper)
	if err != nil {
		return err
	}
	defer st.Close()

	session := service.NewSessionService(st, helper, logger)
	if _, err := session.Start(); err != nil {
		return err
	}

	metrics := service.NewMetricsService(st, logger)
	if err := metrics.TrackEvent(service.EventSessionStart, map[string]string{
		"version": Version,
		"build":   Build,
		"api":     APIVersion,
	}); err != nil {
		logger.Warn("failed to record session start", "error", err)
	}

	probeAddr := cfg.Connectivity.ProbeAddress
	if probeAddr == "" {
		if probeAddr, err = connectivity.AddressForEndpoint(cfg.Endpoint.URL); err != nil {
			return err
		}
	}

	coord := loader.NewCoordinator(cfg.Endpoint.URL, logger, loader.WithTimeout(cfg.Endpoint.Timeout))
	monitor := connectivity.NewMonitor(
		connectivity.NewDialProber(probeAddr, cfg.Connectivity.DialTimeout),
		cfg.Connectivity.Interval,
		logger,
	)
	surfaces := surface.NewFactory(logger, surface.WithUserAgent("inferno/"+Version))
	launcher := browser.NewLauncher(cfg.Browser.Command, cfg.Browser.Args, logger)

	updates := tui.NewChannelObserver(16)
	coord.Subscribe(metrics)
	coord.Subscribe(updates)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		coord.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		monitor.Run(ctx, coord.SetConnectivity)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	coord.Bind(surfaces.New)

	if headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		final, err := runHeadless(ctx, updates.Updates(), out)
		if err != nil {
			return err
		}
		if final.Phase == domain.PhaseFinished && cfg.Browser.AutoOpen {
			return launcher.Launch(pageURL(surfaces, cfg.Endpoint.URL))
		}
		return nil
	}

	styles.SetTheme(cfg.UI.Theme)
	model := tui.NewModel(coord, updates.Updates(), launcher, tui.Options{
		Endpoint: cfg.Endpoint.URL,
		AutoOpen: cfg.Browser.AutoOpen,
		Version:  Version,
		Pages:    surfaces,
		Data:     surfaces,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	logger.Info("starting TUI")
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down", "status", coord.Status().String(), "online", monitor.Current())
	return nil
}

// pageURL prefers the final URL of the loaded page over the configured one
func pageURL(pages *surface.Factory, fallback string) string {
	if page, ok := pages.LastPage(); ok && page.FinalURL != "" {
		return page.FinalURL
	}
	return fallback
}
