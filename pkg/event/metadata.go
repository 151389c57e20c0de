package event

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// SanitizeMetadataID strips all non-alphanumeric characters from an
// identifier pulled from gateway free-text metadata. Campaign IDs pasted
// into vendor forms have been observed carrying invisible whitespace
// (NBSP and friends), which breaks exact-match lookups downstream.
func SanitizeMetadataID(s string) string {
	return nonAlphanumeric.ReplaceAllString(s, "")
}

// MetadataValue returns the first non-empty value among the given keys,
// matched case-insensitively. Keys are tried in order; the caller defines
// precedence.
func MetadataValue(md map[string]string, keys ...string) string {
	for _, key := range keys {
		for k, v := range md {
			if strings.EqualFold(k, key) && v != "" {
				return v
			}
		}
	}
	return ""
}

// MetadataValueMatching returns the first non-empty value whose lowercased
// key satisfies match. Map iteration order is not stable, so use this only
// when any matching key is acceptable.
func MetadataValueMatching(md map[string]string, match func(key string) bool) string {
	for k, v := range md {
		if v != "" && match(strings.ToLower(k)) {
			return v
		}
	}
	return ""
}

// CampaignFromMetadata resolves a campaign/fund identifier from gateway
// metadata, sanitized for downstream lookups. Explicit keys win; "campaign"
// is the common fallback vendors actually use.
func CampaignFromMetadata(md map[string]string) string {
	v := MetadataValue(md, "sf_campaign_id", "campaign_id", "campaign")
	return SanitizeMetadataID(v)
}
