package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGenerateSpec() *JobSpec {
	return &JobSpec{
		Type:            JobTypeGenerate,
		Prompt:          "a glacier calving at golden hour",
		DurationSeconds: 5,
		Width:           1280,
		Height:          720,
		FPS:             24,
		Style:           "cinematic",
		Quality:         "standard",
		OutputFormat:    "mp4",
	}
}

func TestValidateJobSpec(t *testing.T) {
	tests := []struct {
		name      string
		tier      string
		mutate    func(*JobSpec)
		wantField string
	}{
		{
			name:   "valid generate request",
			tier:   TierFree,
			mutate: func(s *JobSpec) {},
		},
		{
			name: "valid enhance request",
			tier: TierPro,
			mutate: func(s *JobSpec) {
				s.Type = JobTypeEnhance
				s.Prompt = ""
				s.SourceURL = "https://cdn.example.com/clips/raw.mp4"
			},
		},
		{
			name:      "empty prompt",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Prompt = "   " },
			wantField: "prompt",
		},
		{
			name:      "prompt too long",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Prompt = strings.Repeat("x", MaxPromptLength+1) },
			wantField: "prompt",
		},
		{
			name:      "unknown job type",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Type = "remix" },
			wantField: "type",
		},
		{
			name: "enhance without source url",
			tier: TierFree,
			mutate: func(s *JobSpec) {
				s.Type = JobTypeEnhance
				s.SourceURL = ""
			},
			wantField: "source_url",
		},
		{
			name: "enhance with relative source url",
			tier: TierFree,
			mutate: func(s *JobSpec) {
				s.Type = JobTypeEnhance
				s.SourceURL = "/clips/raw.mp4"
			},
			wantField: "source_url",
		},
		{
			name:      "duration above tier maximum",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.DurationSeconds = 9 },
			wantField: "duration_seconds",
		},
		{
			name:      "duration below minimum",
			tier:      TierStudio,
			mutate:    func(s *JobSpec) { s.DurationSeconds = 1 },
			wantField: "duration_seconds",
		},
		{
			name:   "pro tier allows longer duration",
			tier:   TierPro,
			mutate: func(s *JobSpec) { s.DurationSeconds = 30 },
		},
		{
			name:      "resolution above tier maximum",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Width, s.Height = 1920, 1080 },
			wantField: "resolution",
		},
		{
			name:   "studio tier allows 4k",
			tier:   TierStudio,
			mutate: func(s *JobSpec) { s.Width, s.Height = 3840, 2160 },
		},
		{
			name:      "zero resolution",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Width, s.Height = 0, 0 },
			wantField: "resolution",
		},
		{
			name:      "unsupported fps",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.FPS = 48 },
			wantField: "fps",
		},
		{
			name:      "unknown style",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Style = "vaporwave" },
			wantField: "style",
		},
		{
			name:      "unknown quality",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.Quality = "ultra" },
			wantField: "quality",
		},
		{
			name:      "unknown output format",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.OutputFormat = "avi" },
			wantField: "output_format",
		},
		{
			name:      "relative callback url",
			tier:      TierFree,
			mutate:    func(s *JobSpec) { s.CallbackURL = "notify/me" },
			wantField: "callback_url",
		},
		{
			name:   "absolute callback url accepted",
			tier:   TierFree,
			mutate: func(s *JobSpec) { s.CallbackURL = "https://hooks.example.com/aurora" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validGenerateSpec()
			tt.mutate(spec)

			err := ValidateJobSpec(tt.tier, spec)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			fields := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				fields[i] = f.Field
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidateJobSpecCollectsAllFields(t *testing.T) {
	spec := &JobSpec{Type: JobTypeGenerate}

	err := ValidateJobSpec(TierFree, spec)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Fields), 4)
}

func TestApplyDefaults(t *testing.T) {
	spec := &JobSpec{Type: JobTypeGenerate, Prompt: "dunes", DurationSeconds: 4, Width: 640, Height: 480}
	spec.ApplyDefaults()

	assert.Equal(t, "cinematic", spec.Style)
	assert.Equal(t, "standard", spec.Quality)
	assert.Equal(t, "mp4", spec.OutputFormat)
	assert.Equal(t, 24, spec.FPS)

	// explicit values survive
	spec2 := &JobSpec{Style: "anime", Quality: "high", OutputFormat: "webm", FPS: 60}
	spec2.ApplyDefaults()
	assert.Equal(t, "anime", spec2.Style)
	assert.Equal(t, "high", spec2.Quality)
	assert.Equal(t, "webm", spec2.OutputFormat)
	assert.Equal(t, 60, spec2.FPS)
}
