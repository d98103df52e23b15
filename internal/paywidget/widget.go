// Package paywidget tracks the PayPal checkout script for one browser document. The script
// runs in the browser; the server only records whether it was injected and whether its
// onload callback has fired, and renders the button configuration.
package paywidget

import (
	"net/url"
	"sync"

	"finitefield.org/hanko-storefront/internal/commerce"
)

const defaultSDKURL = "https://www.paypal.com/sdk/js"

// Button is what the order page needs to mount the payment buttons.
type Button struct {
	Amount     string
	SuccessURL string
	ScriptURL  string
}

// Widget is the per-document script state.
type Widget struct {
	sdkURL   string
	clientID string
	currency string

	mu       sync.Mutex
	injected bool
	loaded   bool
	onLoad   []func()
}

// New returns a widget that loads the SDK for the given client id.
func New(sdkURL, clientID, currency string) *Widget {
	if sdkURL == "" {
		sdkURL = defaultSDKURL
	}
	if currency == "" {
		currency = "USD"
	}
	return &Widget{sdkURL: sdkURL, clientID: clientID, currency: currency}
}

// Present reports whether the SDK global is available in the current document.
func (w *Widget) Present() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// Load injects the script once and registers onLoad to run when it finishes loading. If the
// script is already loaded onLoad runs immediately.
func (w *Widget) Load(onLoad func()) {
	w.mu.Lock()
	if w.loaded {
		w.mu.Unlock()
		if onLoad != nil {
			onLoad()
		}
		return
	}
	w.injected = true
	if onLoad != nil {
		w.onLoad = append(w.onLoad, onLoad)
	}
	w.mu.Unlock()
}

// Injected reports whether a script tag must be rendered for a pending load.
func (w *Widget) Injected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.injected && !w.loaded
}

// Loaded is called when the browser reports the script's onload event. Callbacks
// registered by Load run once, outside the lock.
func (w *Widget) Loaded() {
	w.mu.Lock()
	if !w.injected || w.loaded {
		w.mu.Unlock()
		return
	}
	w.loaded = true
	callbacks := w.onLoad
	w.onLoad = nil
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// Unload forgets the script. A full page load starts a new document without the SDK.
func (w *Widget) Unload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.injected = false
	w.loaded = false
	w.onLoad = nil
}

// ScriptURL is the SDK source including the client id.
func (w *Widget) ScriptURL() string {
	q := url.Values{}
	if w.clientID != "" {
		q.Set("client-id", w.clientID)
	}
	q.Set("currency", w.currency)
	return w.sdkURL + "?" + q.Encode()
}

// Render returns the button configuration for the given amount.
func (w *Widget) Render(amount commerce.Money, successURL string) Button {
	return Button{
		Amount:     amount.String(),
		SuccessURL: successURL,
		ScriptURL:  w.ScriptURL(),
	}
}
