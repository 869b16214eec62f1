package fixgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"compliscan/internal/domain"
)

// CookieBanner emits the three-file cookie-consent bundle (spec §4.G):
// an equally-prominent accept/reject modal, category toggles, consent
// persistence keyed on a random visitor id, a settings reopener, and
// conditional activation per each matched service's blocking recipe.
func CookieBanner(services []domain.MatchedService) domain.Artifact {
	visitorIDSeed := uuid.NewString()

	html := cookieBannerHTML()
	css := cookieBannerCSS()
	js := cookieBannerJS(services, visitorIDSeed)

	return domain.Artifact{
		Files: map[string][]byte{
			"cookie-banner.html": []byte(html),
			"cookie-banner.css":  []byte(css),
			"cookie-banner.js":   []byte(js),
		},
		Explanation:             "Cookie consent banner with equally prominent accept/reject actions, category toggles, and per-service blocking hooks.",
		IntegrationInstructions: "Paste cookie-banner.html into the page body, include cookie-banner.css in <head> and cookie-banner.js before </body>; the script shows and hides that markup but does not create it.",
		EstimatedTimeMinutes:    15,
	}
}

func cookieBannerHTML() string {
	return `<div id="cookie-banner" role="dialog" aria-label="Cookie consent" hidden>
  <p id="cookie-banner-text">We use cookies for necessary site functions and, with your consent, for analytics and marketing.</p>
  <fieldset>
    <label><input type="checkbox" name="necessary" checked disabled> Necessary</label>
    <label><input type="checkbox" name="functional"> Functional</label>
    <label><input type="checkbox" name="analytics"> Analytics</label>
    <label><input type="checkbox" name="marketing"> Marketing</label>
  </fieldset>
  <button id="cookie-accept" type="button">Accept all</button>
  <button id="cookie-reject" type="button">Reject (necessary only)</button>
</div>
<button id="cookie-settings-reopen" type="button" aria-label="Cookie settings" hidden>Cookie settings</button>
`
}

func cookieBannerCSS() string {
	return `#cookie-banner {
  position: fixed;
  left: 0;
  right: 0;
  bottom: 0;
  z-index: 9999;
  background: #fff;
  border-top: 1px solid #ccc;
  padding: 1rem;
}
#cookie-banner button {
  font-weight: bold;
  padding: 0.5rem 1rem;
  margin-right: 0.5rem;
}
#cookie-settings-reopen {
  position: fixed;
  left: 1rem;
  bottom: 1rem;
  z-index: 9998;
}
`
}

func cookieBannerJS(services []domain.MatchedService, visitorIDSeed string) string {
	var activations strings.Builder
	for _, svc := range services {
		switch svc.BlockingRecipe {
		case domain.BlockScriptRewrite:
			activations.WriteString(fmt.Sprintf(
				"  if (consent.%s) { reactivateScripts(%q); }\n",
				consentKey(svc.Entry.Category), svc.Entry.Key))
		case domain.BlockIframePlaceholder:
			activations.WriteString(fmt.Sprintf(
				"  if (consent.%s) { reactivateIframes(%q); }\n",
				consentKey(svc.Entry.Category), svc.Entry.Key))
		}
	}

	return fmt.Sprintf(`(function () {
  "use strict";
  var STORAGE_KEY = "compliscan_consent";
  var VISITOR_SEED = %q;

  function visitorID() {
    var existing = localStorage.getItem("compliscan_visitor_id");
    if (existing) return existing;
    var id = VISITOR_SEED + "-" + Date.now();
    localStorage.setItem("compliscan_visitor_id", id);
    return id;
  }

  function loadConsent() {
    try {
      return JSON.parse(localStorage.getItem(STORAGE_KEY) || "null");
    } catch (e) {
      return null;
    }
  }

  function saveConsent(consent) {
    consent.visitor_id = visitorID();
    consent.saved_at = Date.now();
    localStorage.setItem(STORAGE_KEY, JSON.stringify(consent));
  }

  function reactivateScripts(serviceKey) {
    document.querySelectorAll('script[data-consent-service="' + serviceKey + '"]').forEach(function (blocked) {
      var real = document.createElement("script");
      real.src = blocked.getAttribute("data-real-src");
      blocked.parentNode.replaceChild(real, blocked);
    });
  }

  function reactivateIframes(serviceKey) {
    document.querySelectorAll('iframe[data-consent-service="' + serviceKey + '"]').forEach(function (placeholder) {
      placeholder.setAttribute("src", placeholder.getAttribute("data-real-src"));
    });
  }

  function applyConsent(consent) {
%s  }

  function showBanner() {
    var banner = document.getElementById("cookie-banner");
    var reopen = document.getElementById("cookie-settings-reopen");
    if (banner) banner.hidden = false;
    if (reopen) reopen.hidden = true;
  }

  function hideBanner() {
    var banner = document.getElementById("cookie-banner");
    var reopen = document.getElementById("cookie-settings-reopen");
    if (banner) banner.hidden = true;
    if (reopen) reopen.hidden = false;
  }

  document.addEventListener("DOMContentLoaded", function () {
    var stored = loadConsent();
    if (stored) {
      applyConsent(stored);
      hideBanner();
    } else {
      showBanner();
    }

    var accept = document.getElementById("cookie-accept");
    var reject = document.getElementById("cookie-reject");
    var reopen = document.getElementById("cookie-settings-reopen");

    if (accept) accept.addEventListener("click", function () {
      var consent = { necessary: true, functional: true, analytics: true, marketing: true };
      saveConsent(consent);
      applyConsent(consent);
      hideBanner();
    });

    if (reject) reject.addEventListener("click", function () {
      var consent = { necessary: true, functional: false, analytics: false, marketing: false };
      saveConsent(consent);
      applyConsent(consent);
      hideBanner();
    });

    if (reopen) reopen.addEventListener("click", showBanner);
  });
})();
`, visitorIDSeed, activations.String())
}

func consentKey(cat domain.ServiceCategory) string {
	switch cat {
	case domain.CategoryAnalytics:
		return "analytics"
	case domain.CategoryMarketing:
		return "marketing"
	case domain.CategoryFunctional:
		return "functional"
	default:
		return "necessary"
	}
}
