package browser

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/stupside/quire/internal/app"
)

//go:embed js/stealth_chrome.js
var stealthChromeJS string

//go:embed js/stealth_permissions.js
var stealthPermissionsJS string

//go:embed js/stealth_plugins.js
var stealthPluginsJS string

//go:embed js/stealth_webgl.js
var stealthWebGLJS string

//go:embed js/stealth_device.js
var stealthDeviceJS string

const colorDepth = 24

// buildStealthJS joins the stealth snippets and fills their placeholders
// from p. Canvas, audio and layout APIs are left untouched: the reader's
// page bitmaps are read back from a canvas and must stay pixel exact.
func buildStealthJS(p *Profile) string {
	fill := strings.NewReplacer(
		"__DEVICE_MEMORY__", strconv.Itoa(p.Memory),
		"__COLOR_DEPTH__", strconv.Itoa(colorDepth),
		"__WEBGL_VENDOR__", p.GPU.Vendor,
		"__WEBGL_RENDERER__", p.GPU.Renderer,
	)

	var b strings.Builder
	for _, s := range []string{
		stealthChromeJS,
		stealthPermissionsJS,
		stealthPluginsJS,
		stealthWebGLJS,
		stealthDeviceJS,
	} {
		// isolated so one failing snippet leaves the others in place
		b.WriteString("try {\n")
		fill.WriteString(&b, s)
		b.WriteString("\n} catch (_) {}\n")
	}
	return b.String()
}

// allocatorOpts starts Chrome with the profile's window and user agent, the
// persistent user data directory and no automation banners.
func allocatorOpts(cfg app.BrowserConfig, p *Profile) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(cfg.ChromePath),
		chromedp.UserDataDir(cfg.UserDataDir),
		chromedp.UserAgent(p.UserAgent()),
		chromedp.WindowSize(p.Screen.Width, p.Screen.Height),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		// the reader pulls page data cross-origin
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
	}

	// Chrome treats any --headless switch as on, whatever its value.
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	// Background tabs must keep rendering: every item has its own tab and
	// the reader draws on timers.
	for _, f := range []string{
		"disable-background-timer-throttling",
		"disable-backgrounding-occluded-windows",
		"disable-renderer-backgrounding",
	} {
		opts = append(opts, chromedp.Flag(f, true))
	}
	return opts
}

// prepare returns the actions run on every new tab before it navigates.
func prepare(p *Profile) []chromedp.Action {
	return []chromedp.Action{
		runtime.Enable(),
		network.Enable(),
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorDeny),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(buildStealthJS(p)).Do(ctx)
			return err
		}),
		overrides(p),
	}
}

// overrides masks at the protocol level what page scripts cannot.
func overrides(p *Profile) chromedp.Tasks {
	ua := emulation.SetUserAgentOverride(p.UserAgent()).
		WithAcceptLanguage(p.Locale.Accept).
		WithPlatform(p.OS.Navigator).
		WithUserAgentMetadata(p.Metadata())

	return chromedp.Tasks{
		emulation.SetAutomationOverride(false),
		emulation.SetFocusEmulationEnabled(true),
		emulation.SetHardwareConcurrencyOverride(p.Cores),
		emulation.SetTimezoneOverride(p.Locale.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale.Languages[0]),
		ua,
	}
}
