package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const MaxPromptLength = 2000

var validStyles = map[string]bool{
	"cinematic":      true,
	"anime":          true,
	"photorealistic": true,
	"watercolor":     true,
	"cyberpunk":      true,
	"claymation":     true,
}

var validQualities = map[string]bool{
	"draft":    true,
	"standard": true,
	"high":     true,
}

var validOutputFormats = map[string]bool{
	"mp4":  true,
	"webm": true,
	"gif":  true,
}

var validFPS = map[int]bool{
	24: true,
	30: true,
	60: true,
}

// ApplyDefaults fills the optional fields of a spec that the request omitted
func (s *JobSpec) ApplyDefaults() {
	if s.Style == "" {
		s.Style = "cinematic"
	}
	if s.Quality == "" {
		s.Quality = "standard"
	}
	if s.OutputFormat == "" {
		s.OutputFormat = "mp4"
	}
	if s.FPS == 0 {
		s.FPS = 24
	}
}

// ValidateJobSpec checks a spec against the fixed enumerations and the
// caller's tier bounds. Returns a *ValidationError listing every failed
// field, or nil when the spec is acceptable.
func ValidateJobSpec(tier string, spec *JobSpec) error {
	limits := LimitsForTier(tier)
	verr := &ValidationError{}

	switch spec.Type {
	case JobTypeGenerate:
		if strings.TrimSpace(spec.Prompt) == "" {
			verr.add("prompt", "prompt must not be empty")
		}
	case JobTypeEnhance:
		if spec.SourceURL == "" {
			verr.add("source_url", "source_url is required for enhancement jobs")
		} else if !isAbsoluteHTTPURL(spec.SourceURL) {
			verr.add("source_url", "source_url must be an absolute http(s) URL")
		}
	default:
		verr.add("type", fmt.Sprintf("type must be %q or %q", JobTypeGenerate, JobTypeEnhance))
	}

	if len(spec.Prompt) > MaxPromptLength {
		verr.add("prompt", fmt.Sprintf("prompt must be at most %d characters", MaxPromptLength))
	}

	if spec.DurationSeconds < limits.MinDurationSeconds || spec.DurationSeconds > limits.MaxDurationSeconds {
		verr.add("duration_seconds", fmt.Sprintf(
			"duration must be between %d and %d seconds for the %s tier",
			limits.MinDurationSeconds, limits.MaxDurationSeconds, tier,
		))
	}

	if spec.Width <= 0 || spec.Height <= 0 {
		verr.add("resolution", "width and height must be positive")
	} else if spec.Width > limits.MaxWidth || spec.Height > limits.MaxHeight {
		verr.add("resolution", fmt.Sprintf(
			"resolution must not exceed %dx%d for the %s tier",
			limits.MaxWidth, limits.MaxHeight, tier,
		))
	}

	if !validFPS[spec.FPS] {
		verr.add("fps", "fps must be one of 24, 30, 60")
	}

	if !validStyles[spec.Style] {
		verr.add("style", "unknown style")
	}

	if !validQualities[spec.Quality] {
		verr.add("quality", "quality must be one of draft, standard, high")
	}

	if !validOutputFormats[spec.OutputFormat] {
		verr.add("output_format", "output format must be one of mp4, webm, gif")
	}

	if spec.CallbackURL != "" && !isAbsoluteHTTPURL(spec.CallbackURL) {
		verr.add("callback_url", "callback_url must be an absolute http(s) URL")
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
