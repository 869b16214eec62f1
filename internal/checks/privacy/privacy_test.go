package privacy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/checks/privacy"
	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/fetch"
)

func serveAndFetch(t *testing.T, handler http.HandlerFunc) (*fetch.Document, *fetch.StaticFetcher) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := fetch.NewStaticFetcher(config.DefaultFetchConfig())
	doc, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	return doc, f
}

func hasIssue(issues []domain.Issue, title string) bool {
	for _, i := range issues {
		if i.Title == title {
			return true
		}
	}
	return false
}

func TestCheck_NoPolicyPageFound(t *testing.T) {
	doc, f := serveAndFetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	issues := privacy.Check(context.Background(), "scan1", doc, f, nil)
	require.Len(t, issues, 1)
	require.Equal(t, "Missing privacy policy", issues[0].Title)
	require.Equal(t, domain.SeverityCritical, issues[0].Severity)
}

func TestCheck_CompletePolicyRaisesNoSectionIssues(t *testing.T) {
	body := `<html><body><p>
Verantwortlich fuer die Datenverarbeitung (data controller) ist Acme GmbH.
Die Zwecke (purpose) der Verarbeitung sind im Folgenden aufgefuehrt. Rechtsgrundlage ist Art. 6 DSGVO.
Speicherdauer: Daten werden 12 Monate gespeichert.
Sie haben ein Recht auf Auskunft, Berichtigung, Loeschung, Einschraenkung, Datenuebertragbarkeit, Widerspruch und Widerruf.
Sie haben das Recht, sich bei einer Aufsichtsbehoerde zu beschweren.
</p></body></html>`
	doc, f := serveAndFetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	})

	issues := privacy.Check(context.Background(), "scan2", doc, f, nil)
	require.Empty(t, issues, "a policy covering every required section should raise nothing")
}

func TestCheck_TrackingServiceWithoutPolicySectionRaisesCriticalIssue(t *testing.T) {
	body := `<html><body><p>Datenschutz: wir verarbeiten keine Daten ohne Rechtsgrundlage (Art. 6).
Verantwortlich ist Acme GmbH. Speicherdauer: 6 Monate. Zweck: Betrieb der Website.
Sie haben ein Recht auf Auskunft, Berichtigung, Loeschung, Einschraenkung, Datenuebertragbarkeit, Widerspruch, Widerruf.
Beschwerderecht bei der Aufsichtsbehoerde.</p></body></html>`
	doc, f := serveAndFetch(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	})

	services := []domain.MatchedService{{
		Entry: domain.ServiceEntry{Key: "google-analytics", DisplayName: "Google Analytics", Category: domain.CategoryAnalytics},
		RequiresConsent: true,
	}}

	issues := privacy.Check(context.Background(), "scan3", doc, f, services)
	require.True(t, hasIssue(issues, "No Google Analytics section in privacy policy"))
}
