package browser

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"

	"github.com/stupside/quire/internal/app"
	"github.com/stupside/quire/internal/gesture"
)

func TestProfileIsStablePerSeed(t *testing.T) {
	a := NewProfile(profileRand("/home/me/data"))
	b := NewProfile(profileRand("/home/me/data"))
	require.Equal(t, a, b)

	// identities stay internally consistent
	for i := range 50 {
		p := NewProfile(rand.New(rand.NewPCG(uint64(i), 1)))
		require.Contains(t, p.UserAgent(), "Chrome/"+p.Chrome.Major+".0.0.0")
		require.Contains(t, p.UserAgent(), p.OS.Token)
		require.Contains(t, p.OS.gpus, p.GPU)
		require.True(t, strings.HasPrefix(p.Locale.Accept, p.Locale.Languages[0]))

		md := p.Metadata()
		require.Equal(t, md.Brands[1].Version, md.Brands[2].Version)
		require.Equal(t, p.Chrome.Full, md.FullVersionList[2].Version)
		require.True(t, strings.HasPrefix(p.Chrome.Full, p.Chrome.Major+"."))
	}
}

func TestBuildStealthJSFillsPlaceholders(t *testing.T) {
	p := NewProfile(rand.New(rand.NewPCG(1, 2)))
	js := buildStealthJS(p)

	require.NotContains(t, js, "__")
	require.Contains(t, js, p.GPU.Renderer)
	require.Contains(t, js, fmt.Sprintf("deviceMemory\", { get: () => %d", p.Memory))
	require.NotContains(t, js, "toDataURL")
	require.NotContains(t, js, "getImageData")
}

// launchArgs starts a stand-in executable that records its arguments and
// exits, and returns what Chrome would have been started with.
func launchArgs(t *testing.T, cfg app.BrowserConfig) []string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping: needs a POSIX shell")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "args")
	exe := filepath.Join(dir, "chrome")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > '" + out + "'\nexit 1\n"
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))

	cfg.ChromePath = exe
	cfg.UserDataDir = filepath.Join(dir, "profile")

	actx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts(cfg, NewProfile(rand.New(rand.NewPCG(3, 4))))...)
	defer cancel()
	bctx, bcancel := chromedp.NewContext(actx)
	defer bcancel()
	require.Error(t, chromedp.Run(bctx))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestLaunchArgsHonourHeadless(t *testing.T) {
	args := launchArgs(t, app.BrowserConfig{Headless: true})
	require.Contains(t, args, "--headless=new")
	require.Contains(t, args, "--disable-web-security")

	args = launchArgs(t, app.BrowserConfig{Headless: false})
	require.False(t, slices.ContainsFunc(args, func(a string) bool {
		return strings.HasPrefix(a, "--headless")
	}), "headful launch still passes a headless switch: %v", args)
	require.Contains(t, args, "--disable-web-security")
	require.NotContains(t, args, "--no-sandbox")
}

func TestCookieStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	require.Nil(t, cookies)

	want := []Cookie{
		{Name: "session", Value: "abc", Domain: ".fakku.net", Path: "/", Expires: 1893456000.5, HTTPOnly: true, Secure: true, SameSite: "Lax"},
		{Name: "pref", Value: "1", Domain: "www.fakku.net", Path: "/"},
	}
	require.NoError(t, SaveCookies(path, want))

	got, err := LoadCookies(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadCookiesAcceptsChromeExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	raw := `[{"name":"a","value":"b","domain":".fakku.net","path":"/","expires":-1,"size":2,"httpOnly":false,"secure":true,"session":true,"priority":"Medium","sameParty":false,"sourceScheme":"Secure"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	got, err := LoadCookies(path)
	require.NoError(t, err)
	require.Equal(t, []Cookie{{Name: "a", Value: "b", Domain: ".fakku.net", Path: "/", Expires: -1, Secure: true}}, got)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err = LoadCookies(path)
	require.Error(t, err)
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "page_3_failed", sanitize("page 3/failed"))
	require.Len(t, sanitize(strings.Repeat("x", 200)), 80)
	require.Equal(t, `"a\"b"`, jsString(`a"b`))
}

// chromePath returns a Chrome/Chromium executable from PATH, or "".
func chromePath() string {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

const readerPage = `<!doctype html>
<html><body>
<div data-name="PageView"><canvas width="40" height="30"></canvas></div>
<button name="login">Login</button>
<script>
  const c = document.querySelector("canvas");
  const g = c.getContext("2d");
  g.fillStyle = "#c00";
  g.fillRect(0, 0, 40, 30);
  const xhr = new XMLHttpRequest();
  xhr.open("GET", "/api/gallery/read");
  xhr.send();
  window.clicks = 0;
  document.addEventListener("mouseup", () => { window.clicks++; });
</script>
</body></html>`

func TestTabAgainstChrome(t *testing.T) {
	exe := chromePath()
	if exe == "" {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/gallery/read":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"pages":{"p1":{"page":1}},"spreads":[]}`)
		default:
			fmt.Fprint(w, readerPage)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := Launch(ctx, app.BrowserConfig{
		Timeout:     30 * time.Second,
		Headless:    true,
		NoSandbox:   true,
		ChromePath:  exe,
		UserDataDir: t.TempDir(),
	})
	require.NoError(t, err)
	defer s.Close()

	tab, err := s.NewTab()
	require.NoError(t, err)
	defer tab.Close()

	var (
		mu     sync.Mutex
		bodies [][]byte
	)
	require.NoError(t, tab.InterceptResponse(Match{URLPattern: "*/read", ResourceType: "XHR"}, func(body []byte) {
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
	}))

	require.NoError(t, tab.Navigate(srv.URL+"/hentai/abc/read/page/1"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bodies) == 1
	}, 10*time.Second, 50*time.Millisecond)

	// a second load does not fire the one-shot interception again
	require.NoError(t, tab.Navigate(srv.URL+"/hentai/abc/read/page/2"))
	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	require.Len(t, bodies, 1)
	require.JSONEq(t, `{"pages":{"p1":{"page":1}},"spreads":[]}`, string(bodies[0]))
	mu.Unlock()

	found, err := tab.Exists("button[name='login']")
	require.NoError(t, err)
	require.True(t, found)

	found, err = tab.Exists("#missing")
	require.NoError(t, err)
	require.False(t, found)

	const selector = "[data-name='PageView'] > canvas"

	marked, err := tab.MarkCanvas(selector, 1)
	require.NoError(t, err)
	require.True(t, marked)

	// already tagged with page 1
	marked, err = tab.MarkCanvas(selector, 2)
	require.NoError(t, err)
	require.False(t, marked)

	dataURL, err := tab.ExtractCanvas(selector, 1)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	dataURL, err = tab.ExtractCanvas(selector, 7)
	require.NoError(t, err)
	require.Empty(t, dataURL)

	require.NoError(t, tab.Dispatch(gesture.Event{Kind: gesture.Press, At: gesture.Point{X: 20, Y: 20}}))
	require.NoError(t, tab.Dispatch(gesture.Event{Kind: gesture.Release, At: gesture.Point{X: 22, Y: 19}}))

	require.NoError(t, tab.SetCookies([]Cookie{{Name: "quire", Value: "1", Domain: "127.0.0.1", Path: "/"}}))
	cookies, err := tab.Cookies()
	require.NoError(t, err)
	require.True(t, slices.ContainsFunc(cookies, func(c Cookie) bool {
		return c.Name == "quire" && c.Value == "1"
	}))

	html, err := tab.HTML()
	require.NoError(t, err)
	require.Contains(t, html, `data-quire-page="1"`)
}
