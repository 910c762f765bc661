package encoder

import "testing"

func TestQualityTable(t *testing.T) {
	tests := []struct {
		hint           string
		wantTier       QualityTier
		wantResolution string
		wantBitrate    string
	}{
		{"4k", Tier4K, "3840x2160", "35000k"},
		{"1440p", Tier1440p, "2560x1440", "16000k"},
		{"1080p", Tier1080p, "1920x1080", "8000k"},
		{"720p", Tier720p, "1280x720", "5000k"},
		{"480p", Tier480p, "854x480", "2500k"},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			tier, spec := LookupQuality(tt.hint)
			if tier != tt.wantTier {
				t.Errorf("tier = %q, want %q", tier, tt.wantTier)
			}
			if spec.Resolution != tt.wantResolution {
				t.Errorf("resolution = %q, want %q", spec.Resolution, tt.wantResolution)
			}
			if spec.Bitrate != tt.wantBitrate {
				t.Errorf("bitrate = %q, want %q", spec.Bitrate, tt.wantBitrate)
			}
		})
	}
}

func TestLookupQualityUnknownHint(t *testing.T) {
	tier, spec := LookupQuality("potato")
	if tier != Tier1080p {
		t.Errorf("unknown hint tier = %q, want 1080p default", tier)
	}
	if spec.Resolution != "1920x1080" {
		t.Errorf("unknown hint resolution = %q, want 1920x1080", spec.Resolution)
	}
}

func TestTierQuality(t *testing.T) {
	if _, ok := Tier720p.Quality(); !ok {
		t.Error("720p should be a known tier")
	}
	if _, ok := QualityTier("8k").Quality(); ok {
		t.Error("8k should not be a known tier")
	}
}
