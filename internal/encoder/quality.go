package encoder

// QualityTier is a named resolution/bitrate preset selected at session start.
type QualityTier string

// Supported quality tiers.
const (
	Tier4K    QualityTier = "4k"
	Tier1440p QualityTier = "1440p"
	Tier1080p QualityTier = "1080p"
	Tier720p  QualityTier = "720p"
	Tier480p  QualityTier = "480p"
)

// QualitySpec is the fixed resolution/bitrate pair for a tier.
type QualitySpec struct {
	Resolution string
	Bitrate    string
}

// qualityTable is fixed; tiers are not configurable at runtime.
var qualityTable = map[QualityTier]QualitySpec{
	Tier4K:    {Resolution: "3840x2160", Bitrate: "35000k"},
	Tier1440p: {Resolution: "2560x1440", Bitrate: "16000k"},
	Tier1080p: {Resolution: "1920x1080", Bitrate: "8000k"},
	Tier720p:  {Resolution: "1280x720", Bitrate: "5000k"},
	Tier480p:  {Resolution: "854x480", Bitrate: "2500k"},
}

// LookupQuality maps a quality hint to its spec. Unknown hints resolve to
// 1080p so a bad hint joins a sane stream instead of failing the subscribe.
func LookupQuality(hint string) (QualityTier, QualitySpec) {
	tier := QualityTier(hint)
	if spec, ok := qualityTable[tier]; ok {
		return tier, spec
	}
	return Tier1080p, qualityTable[Tier1080p]
}

// Quality returns the resolution/bitrate pair for a known tier.
func (t QualityTier) Quality() (QualitySpec, bool) {
	spec, ok := qualityTable[t]
	return spec, ok
}
