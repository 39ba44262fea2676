// Package extract pulls credentials out of intermediary embed pages: a JWT
// for the encrypted backends, the channel key embedded in its payload, and
// the short-lived token used by the static-token backend.
//
// Pages come in two flavors. Older ones carry the values in plain script
// assignments, which cheap regex scans recover. Newer ones ship an
// obfuscated bootstrap that stores a base64 config blob in a window slot
// and decodes it client-side; for those the bootstrap is evaluated in a
// goja VM under a minimal browser prelude and the decoded config is read
// back out.
package extract

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// Extraction is the set of credentials found in one page. Empty fields are
// normal: a page only carries what its backend family needs.
type Extraction struct {
	JWT        string
	ChannelKey string
	Token      string
}

// Empty reports whether nothing was found.
func (e Extraction) Empty() bool {
	return e.JWT == "" && e.ChannelKey == "" && e.Token == ""
}

var (
	jwtRegexp        = regexp.MustCompile(`["'](eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*)["']`)
	channelKeyRegexp = regexp.MustCompile(`channelKey\s*[:=]\s*["']([A-Za-z0-9_-]+)["']`)
	tokenRegexp      = regexp.MustCompile(`\btoken\s*[:=]\s*["']([A-Za-z0-9_-]{8,})["']`)
	windowSlotRegexp = regexp.MustCompile(`window\[['"]([A-Za-z0-9_]+)['"]\]\s*=\s*'([^']+)'`)
	scriptRegexp     = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)
)

// Extractor finds credentials in raw page HTML. The zero value is ready to
// use.
type Extractor struct{}

// FromPage scans html for credentials. A page without any is not an error;
// an error is returned only when an obfuscated bootstrap is present but
// cannot be decoded.
func (x Extractor) FromPage(html string) (Extraction, error) {
	var out Extraction
	if m := jwtRegexp.FindStringSubmatch(html); m != nil {
		out.JWT = m[1]
	}
	if m := channelKeyRegexp.FindStringSubmatch(html); m != nil {
		out.ChannelKey = m[1]
	}
	if m := tokenRegexp.FindStringSubmatch(html); m != nil {
		out.Token = m[1]
	}

	slot := windowSlotRegexp.FindStringSubmatch(html)
	if slot == nil {
		return out, nil
	}

	// Plain pages sometimes store the config blob directly base64-encoded.
	if cfg, ok := decodeConfig(slot[2]); ok {
		return out.merge(cfg), nil
	}

	// Obfuscated bootstrap: run the page's inline scripts and read the slot
	// back after the decoder has replaced it.
	decoded, err := x.evalBootstrap(html, slot[1])
	if err != nil {
		return out, err
	}
	if cfg, ok := decodeConfig(decoded); ok {
		return out.merge(cfg), nil
	}
	return out, nil
}

type pageConfig struct {
	JWT        string `json:"jwt"`
	ChannelKey string `json:"channel_key"`
	Token      string `json:"token"`
}

func (e Extraction) merge(cfg pageConfig) Extraction {
	if e.JWT == "" {
		e.JWT = cfg.JWT
	}
	if e.ChannelKey == "" {
		e.ChannelKey = cfg.ChannelKey
	}
	if e.Token == "" {
		e.Token = cfg.Token
	}
	return e
}

// decodeConfig accepts either a JSON object or a base64-encoded JSON
// object.
func decodeConfig(raw string) (pageConfig, bool) {
	var cfg pageConfig
	data := []byte(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return cfg, false
		}
		data = decoded
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, false
	}
	if cfg.JWT == "" && cfg.ChannelKey == "" && cfg.Token == "" {
		return cfg, false
	}
	return cfg, true
}

// evalBootstrap runs every inline script in a fresh VM and returns the final
// value of the window slot as a string. Individual script errors are
// tolerated: obfuscated pages reference browser APIs the prelude does not
// fully model, and only the slot value matters.
func (x Extractor) evalBootstrap(html, slot string) (string, error) {
	vm := goja.New()
	if _, err := vm.RunString(bootstrapPreludeJS); err != nil {
		return "", err
	}

	ran := false
	for _, m := range scriptRegexp.FindAllStringSubmatch(html, -1) {
		body := m[1]
		if strings.TrimSpace(body) == "" {
			continue
		}
		if _, err := vm.RunString(body); err == nil {
			ran = true
		}
	}
	if !ran {
		return "", errNoRunnableScript
	}

	window := vm.Get("window")
	if window == nil || goja.IsUndefined(window) || goja.IsNull(window) {
		return "", errBootstrapSlotMissing
	}
	val := window.ToObject(vm).Get(slot)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return "", errBootstrapSlotMissing
	}
	return val.String(), nil
}

// DecodeJWTChannelKey recovers the channel key embedded in a JWT payload.
// The token is not verified; it is only a container here.
func DecodeJWTChannelKey(jwt string) (string, error) {
	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return "", errMalformedJWT
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errMalformedJWT
	}
	var claims struct {
		ChannelKey string `json:"channel_key"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", errMalformedJWT
	}
	return claims.ChannelKey, nil
}

const bootstrapPreludeJS = `
var globalThis = this;
if (typeof window === 'undefined') { var window = this; }
if (typeof document === 'undefined') {
	var document = {
		getElementById: function(){ return null; },
		createElement: function(){ return { style: {}, setAttribute: function(){}, appendChild: function(){} }; },
		addEventListener: function(){},
		cookie: ''
	};
}
if (typeof navigator === 'undefined') { var navigator = { userAgent: 'Mozilla/5.0' }; }
if (!window.document) { window.document = document; }
if (!window.navigator) { window.navigator = navigator; }
if (!window.addEventListener) { window.addEventListener = function(){}; }
if (!window.setTimeout) { window.setTimeout = function(fn){ return 0; }; }
if (!window.clearTimeout) { window.clearTimeout = function(){}; }
if (typeof atob === 'undefined') {
	var atob = function(input) {
		var chars = 'ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/';
		var str = String(input).replace(/=+$/, '');
		var output = '';
		for (var bc = 0, bs, buffer, idx = 0; (buffer = str.charAt(idx++));) {
			buffer = chars.indexOf(buffer);
			if (buffer === -1) { continue; }
			bs = bc % 4 ? bs * 64 + buffer : buffer;
			if (bc++ % 4) { output += String.fromCharCode(255 & (bs >> ((-2 * bc) & 6))); }
		}
		return output;
	};
}
if (!window.atob) { window.atob = atob; }
if (typeof btoa === 'undefined') { var btoa = function(s) { return s; }; }
if (!window.btoa) { window.btoa = btoa; }
`

var (
	errNoRunnableScript     = errString("no runnable bootstrap script in page")
	errBootstrapSlotMissing = errString("bootstrap window slot not populated")
	errMalformedJWT         = errString("malformed jwt")
)

type errString string

func (e errString) Error() string { return string(e) }
