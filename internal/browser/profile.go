package browser

import (
	"fmt"
	"math/rand/v2"

	"github.com/chromedp/cdproto/emulation"
)

// Profile is the browser identity presented to the site. All parts are
// drawn together so the user agent, Client Hints, GPU and locale agree.
type Profile struct {
	Chrome Release
	OS     OS
	GPU    GPU
	Locale Locale
	Screen Screen

	Cores  int64
	Memory int
}

// Release is a stable Chrome build.
type Release struct {
	Major string
	Full  string
	// grease brand sent alongside the real ones in Client Hints
	Grease string
}

// OS describes the operating system half of the identity.
type OS struct {
	Token           string // inside the UA parentheses
	Navigator       string // navigator.platform
	Platform        string // Sec-CH-UA-Platform
	PlatformVersion string
	Architecture    string
	Bitness         string
	gpus            []GPU
}

// GPU is the unmasked WebGL vendor and renderer pair.
type GPU struct {
	Vendor   string
	Renderer string
}

// Locale groups timezone and language preferences.
type Locale struct {
	Timezone  string
	Languages []string
	Accept    string
}

// Screen is the window size Chrome is started with.
type Screen struct {
	Width  int
	Height int
}

var (
	windows = OS{
		Token:           "Windows NT 10.0; Win64; x64",
		Navigator:       "Win32",
		Platform:        "Windows",
		PlatformVersion: "19.0.0",
		Architecture:    "x86",
		Bitness:         "64",
		gpus: []GPU{
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 4060 (0x00002882) Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3070 (0x00002484) Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6600 (0x000073FF) Direct3D11 vs_5_0 ps_5_0, D3D11)"},
			{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics (0x00009A49) Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		},
	}
	macOS = OS{
		Token:           "Macintosh; Intel Mac OS X 10_15_7",
		Navigator:       "MacIntel",
		Platform:        "macOS",
		PlatformVersion: "15.3.0",
		Architecture:    "arm",
		Bitness:         "64",
		gpus: []GPU{
			{"Google Inc. (Apple)", "ANGLE (Apple, ANGLE Metal Renderer: Apple M2, Unspecified Version)"},
			{"Google Inc. (Apple)", "ANGLE (Apple, ANGLE Metal Renderer: Apple M3 Pro, Unspecified Version)"},
		},
	}
)

// Windows is weighted twice.
var systems = []OS{windows, windows, macOS}

var releases = []Release{
	{Major: "139", Full: "139.0.7258.155", Grease: "Not;A=Brand"},
	{Major: "140", Full: "140.0.7339.186", Grease: "Not=A?Brand"},
	{Major: "141", Full: "141.0.7390.108", Grease: "Not?A_Brand"},
}

// Reader pages are tall; small laptop screens are left out so the page
// canvas renders at a useful resolution.
var screens = []Screen{
	{1920, 1080},
	{2560, 1440},
	{1728, 1117},
}

var locales = []Locale{
	{"America/New_York", []string{"en-US", "en"}, "en-US,en;q=0.9"},
	{"America/Denver", []string{"en-US", "en"}, "en-US,en;q=0.9"},
	{"America/Los_Angeles", []string{"en-US", "en"}, "en-US,en;q=0.9"},
	{"Europe/London", []string{"en-GB", "en"}, "en-GB,en;q=0.9"},
	{"Australia/Sydney", []string{"en-AU", "en"}, "en-AU,en;q=0.9"},
}

func pick[T any](r *rand.Rand, s []T) T {
	return s[r.IntN(len(s))]
}

// NewProfile draws an identity from r. The same source sequence always
// yields the same profile.
func NewProfile(r *rand.Rand) *Profile {
	sys := pick(r, systems)
	return &Profile{
		Chrome: pick(r, releases),
		OS:     sys,
		GPU:    pick(r, sys.gpus),
		Locale: pick(r, locales),
		Screen: pick(r, screens),
		Cores:  pick(r, []int64{4, 8, 12, 16}),
		Memory: pick(r, []int{8, 16, 32}),
	}
}

// UserAgent returns the navigator.userAgent string. Chrome reports a frozen
// minor version there; the full build only appears in Client Hints.
func (p *Profile) UserAgent() string {
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s.0.0.0 Safari/537.36",
		p.OS.Token, p.Chrome.Major,
	)
}

// Metadata returns the Client Hints sent with the user agent override.
func (p *Profile) Metadata() *emulation.UserAgentMetadata {
	brands := func(grease, version string) []*emulation.UserAgentBrandVersion {
		return []*emulation.UserAgentBrandVersion{
			{Brand: p.Chrome.Grease, Version: grease},
			{Brand: "Chromium", Version: version},
			{Brand: "Google Chrome", Version: version},
		}
	}
	return &emulation.UserAgentMetadata{
		Brands:          brands("8", p.Chrome.Major),
		FullVersionList: brands("8.0.0.0", p.Chrome.Full),
		Platform:        p.OS.Platform,
		PlatformVersion: p.OS.PlatformVersion,
		Architecture:    p.OS.Architecture,
		Bitness:         p.OS.Bitness,
	}
}
