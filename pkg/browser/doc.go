// Package browser runs browser-automation actions against many concurrent
// sessions identified by opaque IDs.
//
// # Architecture
//
// The package is built around three core concepts:
//
// 1. Session: one driver connection, one browser, one isolated context and one page
// 2. SessionManager: an injectable registry that creates, looks up and closes sessions
// 3. Executor: resolves locators and runs actions with a uniform success/screenshot result
//
// The engine is reached through the Launcher, Driver, BrowserInstance,
// BrowsingContext, Page and Element interfaces. PlaywrightLauncher is the
// production implementation.
//
// # Session Lifecycle
//
//  1. Create: starts driver, browser, context and page; any failure unwinds what was acquired
//  2. Use: actions run one at a time per session, sessions run independently
//  3. Close: releases page, context, browser, then driver; release errors are logged, not returned
//
// # Errors
//
// Hard errors (ErrUnsupportedBrowserKind, ErrSessionStartFailure,
// ErrSessionNotFound, ErrInvalidRequest, ErrInvalidLocator) are returned.
// Anything that fails on the page is a soft failure: Result.Success is false
// and Result.Screenshot shows the page as it was left.
//
// # Example Usage
//
//	manager := browser.NewSessionManager(browser.NewPlaywrightLauncher(nil))
//	executor := browser.NewExecutor(manager)
//
//	id, err := manager.Create(ctx, browser.SessionOptions{
//	    Kind:     browser.KindChromium,
//	    Headless: true,
//	    Viewport: &browser.Viewport{Width: 1280, Height: 720},
//	})
//
//	res, err := executor.Navigate(ctx, id, browser.NavigateParams{URL: "https://example.com"})
//	res, err = executor.Click(ctx, id, browser.RoleName("link", "More"), browser.ClickParams{})
//
//	manager.Close(id)
package browser
