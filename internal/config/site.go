package config

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing crawl behavior per site.
type SiteConfig struct {
	// Selectors overrides the global CSS selectors for this site.
	Selectors []string `yaml:"selectors,omitempty"`

	// Pattern overrides the global text search pattern for this site.
	Pattern string `yaml:"pattern,omitempty"`

	// MaxPages overrides the global page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// DelaySeconds overrides the global request delay for this site.
	// If zero, the global Delay is used.
	DelaySeconds float64 `yaml:"delaySeconds,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .scopecrawl configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys should be the host without the protocol (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if len(siteConfig.Selectors) > 0 {
			result.Selectors = siteConfig.Selectors
		}
		if siteConfig.Pattern != "" {
			result.Pattern = siteConfig.Pattern
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
		if siteConfig.DelaySeconds != 0 {
			result.DelaySeconds = siteConfig.DelaySeconds
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
	}

	return result
}
