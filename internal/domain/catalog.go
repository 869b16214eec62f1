package domain

// ServiceCategory is the closed taxonomy a catalog entry belongs to.
// Necessary services are never blocked and never require consent;
// functional may require consent depending on purpose; analytics and
// marketing always require consent (spec §4.A).
type ServiceCategory string

const (
	CategoryNecessary  ServiceCategory = "necessary"
	CategoryFunctional ServiceCategory = "functional"
	CategoryAnalytics  ServiceCategory = "analytics"
	CategoryMarketing  ServiceCategory = "marketing"
)

// BlockMethod is the strategy used to disable a service pending consent.
type BlockMethod string

const (
	BlockScriptRewrite    BlockMethod = "script_rewrite"
	BlockIframePlaceholder BlockMethod = "iframe_placeholder"
	BlockNone             BlockMethod = "no_blocking"
)

// UnclassifiedServiceKey is the reserved catalog entry used for third
// parties that don't match any known fingerprint. It is always treated as
// category marketing (conservative default, spec §4.A) and is not itself
// a back-edge in the scan→fix DAG — just a stand-in service key.
const UnclassifiedServiceKey = "unclassified"

// ServiceEntry is one row of the service catalog (spec §3, §4.A).
type ServiceEntry struct {
	Key               string          `yaml:"key" json:"key"`
	DisplayName       string          `yaml:"display_name" json:"display_name"`
	Category          ServiceCategory `yaml:"category" json:"category"`
	Provider          string          `yaml:"provider" json:"provider"`
	ScriptPatterns    []string        `yaml:"script_patterns,omitempty" json:"script_patterns,omitempty"`
	IframePatterns    []string        `yaml:"iframe_patterns,omitempty" json:"iframe_patterns,omitempty"`
	CookiePatterns    []string        `yaml:"cookie_patterns,omitempty" json:"cookie_patterns,omitempty"`
	StoragePatterns   []string        `yaml:"storage_patterns,omitempty" json:"storage_patterns,omitempty"`
	BlockMethod       BlockMethod     `yaml:"block_method" json:"block_method"`
	PrivacyPolicyURL  string          `yaml:"privacy_policy_url,omitempty" json:"privacy_policy_url,omitempty"`
	// DefaultPurpose and DefaultRetention seed the fix generator's
	// privacy-paragraph template (spec §4.G) when company info doesn't
	// override them.
	DefaultPurpose   string `yaml:"default_purpose,omitempty" json:"default_purpose,omitempty"`
	DefaultRetention string `yaml:"default_retention,omitempty" json:"default_retention,omitempty"`
}

// RequiresConsent reports whether this category requires user consent
// before the service may load (spec §4.D).
func (c ServiceCategory) RequiresConsent() bool {
	return c == CategoryAnalytics || c == CategoryMarketing
}

// MatchEvidence records which catalog pattern fired and where.
type MatchEvidence struct {
	ServiceKey string `json:"service_key"`
	MatchedOn  string `json:"matched_on"` // "script" | "iframe" | "cookie" | "storage"
	Pattern    string `json:"pattern"`
	Element    string `json:"element,omitempty"` // script/iframe src (or "<inline>") / cookie name / storage key
}

// MatchedService is one catalog entry that fired against a DOM, with the
// evidence that triggered it and whether consent is required before it
// may run.
type MatchedService struct {
	Entry            ServiceEntry    `json:"entry"`
	Evidence         []MatchEvidence `json:"evidence"`
	RequiresConsent  bool            `json:"requires_consent"`
	BlockingRecipe   BlockMethod     `json:"blocking_recipe"`
}
