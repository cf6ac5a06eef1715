package desktop

import (
	"encoding/json"
	"fmt"

	"ergosum/internal/navigation"
)

const chromeStyleID = "ergosum-desktop-chrome"

const scrollbarCSS = `html, body {
  scrollbar-width: thin;
  scrollbar-color: rgba(128, 128, 128, 0.3) transparent;
}
html::-webkit-scrollbar, body::-webkit-scrollbar, *::-webkit-scrollbar {
  width: 10px;
  height: 10px;
}
html::-webkit-scrollbar-track, body::-webkit-scrollbar-track, *::-webkit-scrollbar-track {
  background: transparent;
}
html::-webkit-scrollbar-thumb, body::-webkit-scrollbar-thumb, *::-webkit-scrollbar-thumb {
  background: rgba(128, 128, 128, 0.3);
  border-radius: 5px;
  border: 2px solid transparent;
  background-clip: padding-box;
}
html::-webkit-scrollbar-thumb:hover, body::-webkit-scrollbar-thumb:hover, *::-webkit-scrollbar-thumb:hover {
  background: rgba(128, 128, 128, 0.5);
  border: 2px solid transparent;
  background-clip: padding-box;
}`

// openExternalBinding is the Wails binding name of WailsBridge.OpenExternal.
const openExternalBinding = "desktop.WailsBridge.OpenExternal"

// navigationShim applies the navigation rules to link clicks and
// window.open. Remote pages never get the Wails runtime injected, so the
// shim talks to the native message channel the runtime itself wraps and
// sends binding calls in the runtime's "C" message format. Page-initiated
// location changes are not intercepted.
const navigationShim = `(function (rules) {
  if (window.__ERGOSUM_DESKTOP__) { return; }
  var post = null;
  if (window.chrome && window.chrome.webview) {
    post = function (m) { window.chrome.webview.postMessage(m); };
  } else if (window.webkit && window.webkit.messageHandlers && window.webkit.messageHandlers.external) {
    post = function (m) { window.webkit.messageHandlers.external.postMessage(m); };
  }
  if (!post) { return; }
  window.__ERGOSUM_DESKTOP__ = true;
  var seq = 0;
  function openExternal(url) {
    seq += 1;
    post('C' + JSON.stringify({ name: rules.openExternal, args: [url], callbackID: 'ergosum-open-' + seq }));
  }
  function classify(url) {
    if (url.indexOf(rules.oauthPath) !== -1) {
      return { allow: false, url: url + (url.indexOf('?') === -1 ? '?' : '&') + rules.marker };
    }
    for (var i = 0; i < rules.inApp.length; i++) {
      if (url.indexOf(rules.inApp[i]) === 0) { return { allow: true, url: url }; }
    }
    return { allow: false, url: url };
  }
  function follow(url) {
    var verdict = classify(url);
    if (verdict.allow) { window.location.assign(verdict.url); } else { openExternal(verdict.url); }
  }
  document.addEventListener('click', function (e) {
    var a = e.target && e.target.closest ? e.target.closest('a[href]') : null;
    if (!a || e.defaultPrevented) { return; }
    var verdict = classify(a.href);
    if (verdict.allow && a.target !== '_blank') { return; }
    e.preventDefault();
    follow(a.href);
  }, true);
  var open = window.open;
  window.open = function (url) {
    if (typeof url !== 'string') { return open.apply(window, arguments); }
    follow(new URL(url, window.location.href).href);
    return null;
  };
})(%s);`

type shimRules struct {
	navigation.Rules
	OpenExternal string `json:"openExternal"`
}

// chromeScript returns the idempotent page script: it (re)inserts the
// scrollbar stylesheet and installs the navigation shim once per page.
func chromeScript() string {
	css, _ := json.Marshal(scrollbarCSS)
	id, _ := json.Marshal(chromeStyleID)
	rules, _ := json.Marshal(shimRules{Rules: navigation.PageRules(), OpenExternal: openExternalBinding})
	return `(function () {
  var id = ` + string(id) + `;
  if (!document.getElementById(id)) {
    var style = document.createElement('style');
    style.id = id;
    style.textContent = ` + string(css) + `;
    (document.head || document.documentElement).appendChild(style);
  }
})();
` + fmt.Sprintf(navigationShim, rules)
}
