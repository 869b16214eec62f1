package fixgen

import (
	"strings"

	"golang.org/x/net/html"

	"compliscan/internal/domain"
)

// validateHTML reports an error only when html.Parse fails. The parser
// recovers from malformed markup (unclosed or misnested tags), so such
// markup passes this check.
func validateHTML(raw string) []string {
	var messages []string
	if _, err := html.Parse(strings.NewReader(raw)); err != nil {
		messages = append(messages, "HTML is not well-formed: "+err.Error())
	}
	return messages
}

// validateCSS rejects expression()/javascript: injection vectors.
func validateCSS(raw string) []string {
	var messages []string
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "expression(") {
		messages = append(messages, "CSS contains disallowed expression()")
	}
	if strings.Contains(lower, "javascript:") {
		messages = append(messages, "CSS contains disallowed javascript: URL")
	}
	return messages
}

// validateJS scans for disallowed constructs, per spec §4.G and testable
// property 9 (no eval(/new Function( in any emitted JS artifact).
func validateJS(raw string) []string {
	var messages []string
	lower := strings.ToLower(raw)
	for _, banned := range []string{"eval(", "new function(", "document.write("} {
		if strings.Contains(lower, banned) {
			messages = append(messages, "JavaScript contains disallowed construct: "+banned)
		}
	}
	return messages
}

// validateArtifact runs every file in art through the validator matching
// its extension and returns the aggregate result.
func validateArtifact(art domain.Artifact) domain.ValidationResult {
	var messages []string
	for name, content := range art.Files {
		raw := string(content)
		switch {
		case strings.HasSuffix(name, ".html"):
			messages = append(messages, validateHTML(raw)...)
		case strings.HasSuffix(name, ".css"):
			messages = append(messages, validateCSS(raw)...)
		case strings.HasSuffix(name, ".js"):
			messages = append(messages, validateJS(raw)...)
		}
	}
	if len(messages) > 0 {
		return domain.ValidationResult{Status: domain.ValidationErrors, Messages: messages}
	}
	return domain.ValidationResult{Status: domain.ValidationOK}
}

// downgradeToGuide converts a failed artifact into a guide-type fix
// carrying the original artifact as a diagnostic (spec §4.G).
func downgradeToGuide(original domain.Artifact, validation domain.ValidationResult) domain.Artifact {
	diag := original
	return domain.Artifact{
		Explanation:             "Automatic remediation could not be validated and was downgraded to a manual guide.",
		IntegrationInstructions: strings.Join(validation.Messages, "; "),
		Diagnostic:              &diag,
	}
}
