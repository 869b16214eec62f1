package fixgen

import (
	"fmt"
	"strings"

	"compliscan/internal/domain"
)

const placeholder = "[PLACEHOLDER]"

// fillOrPlaceholder returns value, or the placeholder token and records
// field in placeholders if value is empty.
func fillOrPlaceholder(value, field string, placeholders *[]string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	*placeholders = append(*placeholders, field)
	return placeholder
}

// ImprintText renders the canonical TMG §5 imprint template, filling in
// whatever company info was supplied and leaving a [PLACEHOLDER] token
// (listed in the artifact's Placeholders field) for anything missing.
func ImprintText(info domain.CompanyInfo) domain.Artifact {
	var placeholders []string
	name := fillOrPlaceholder(info.Name, "name", &placeholders)
	street := fillOrPlaceholder(info.Street, "street", &placeholders)
	postal := fillOrPlaceholder(info.PostalCode, "postal_code", &placeholders)
	city := fillOrPlaceholder(info.City, "city", &placeholders)
	phone := fillOrPlaceholder(info.Phone, "phone", &placeholders)
	email := fillOrPlaceholder(info.Email, "email", &placeholders)
	vat := fillOrPlaceholder(info.VATID, "vat_id", &placeholders)
	responsible := fillOrPlaceholder(info.ResponsiblePerson, "responsible_person", &placeholders)
	court := fillOrPlaceholder(info.RegisterCourt, "register_court", &placeholders)
	number := fillOrPlaceholder(info.RegisterNumber, "register_number", &placeholders)

	text := fmt.Sprintf(`Impressum

Angaben gemäß § 5 TMG

%s
%s
%s %s

Kontakt:
Telefon: %s
E-Mail: %s

Umsatzsteuer-Identifikationsnummer gemäß § 27a Umsatzsteuergesetz: %s

Registergericht: %s
Registernummer: %s

Verantwortlich für den Inhalt nach § 18 Abs. 2 MStV: %s
`, name, street, postal, city, phone, email, vat, court, number, responsible)

	return domain.Artifact{
		Files:                   map[string][]byte{"impressum.html": []byte(wrapHTML("Impressum", text))},
		Explanation:             "Canonical TMG §5 imprint text with your company details filled in where provided.",
		IntegrationInstructions: "Publish this content at your imprint page (commonly linked as Impressum/Legal Notice in the footer).",
		Placeholders:            placeholders,
		EstimatedTimeMinutes:    10,
	}
}

// PrivacyText renders the canonical GDPR Art. 13/14 privacy-policy
// template, enriched with one paragraph per detected third-party service
// (spec §4.G).
func PrivacyText(info domain.CompanyInfo, services []domain.MatchedService, legalParagraph func(serviceName, purpose string) string) domain.Artifact {
	var placeholders []string
	name := fillOrPlaceholder(info.Name, "name", &placeholders)
	email := fillOrPlaceholder(info.Email, "email", &placeholders)

	var sb strings.Builder
	sb.WriteString("Datenschutzerklärung\n\n")
	sb.WriteString(fmt.Sprintf("Verantwortlicher: %s\nKontakt: %s\n\n", name, email))
	sb.WriteString("Ihre Rechte: Auskunft, Berichtigung, Löschung, Einschränkung der Verarbeitung, ")
	sb.WriteString("Datenübertragbarkeit, Widerspruch und Widerruf erteilter Einwilligungen sowie das Recht, ")
	sb.WriteString("sich bei einer Aufsichtsbehörde zu beschweren.\n\n")

	for _, svc := range services {
		purpose := svc.Entry.DefaultPurpose
		if purpose == "" {
			purpose = "nicht näher spezifizierter Zweck"
		}
		legalBasis := "Art. 6 Abs. 1 lit. f DSGVO (berechtigtes Interesse)"
		if svc.Entry.Category == domain.CategoryAnalytics || svc.Entry.Category == domain.CategoryMarketing {
			legalBasis = "Art. 6 Abs. 1 lit. a DSGVO (Einwilligung)"
		}
		retention := svc.Entry.DefaultRetention
		if retention == "" {
			retention = "keine über die Sitzung hinausgehende Speicherung"
		}

		sb.WriteString(fmt.Sprintf("%s (%s)\n", svc.Entry.DisplayName, svc.Entry.Provider))
		if legalParagraph != nil {
			sb.WriteString(legalParagraph(svc.Entry.DisplayName, purpose))
			sb.WriteString("\n")
		} else {
			sb.WriteString(fmt.Sprintf("Zweck: %s. Rechtsgrundlage: %s. Speicherdauer: %s.\n", purpose, legalBasis, retention))
		}
		sb.WriteString("\n")
	}

	return domain.Artifact{
		Files:                   map[string][]byte{"datenschutzerklaerung.html": []byte(wrapHTML("Datenschutzerklärung", sb.String()))},
		Explanation:             "Canonical GDPR Art. 13/14 privacy-policy text with one section per detected third-party service.",
		IntegrationInstructions: "Publish this content at your privacy-policy page.",
		Placeholders:            placeholders,
		EstimatedTimeMinutes:    20,
	}
}

func wrapHTML(title, body string) string {
	escaped := strings.ReplaceAll(body, "\n", "<br>\n")
	return fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"de\"><head><meta charset=\"utf-8\"><title>%s</title></head><body>%s</body></html>\n", title, escaped)
}
