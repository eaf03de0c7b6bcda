package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	v := s.Fallback(FallbackValidation)
	require.True(t, v.IsWaste)
	require.Equal(t, []Entry{{Type: "niet_classificeerbaar", Confidence: 0.5}}, v.Types)
	require.Equal(t, []string{"fallback"}, v.Features)

	for _, k := range []string{FallbackError, FallbackNoResponse} {
		f := s.Fallback(k)
		require.False(t, f.IsWaste, k)
		require.Empty(t, f.Types, k)
	}
}

func TestFallbackIsACopy(t *testing.T) {
	s := Default()
	f := s.Fallback(FallbackValidation)
	f.Types[0].Type = "Glas"
	f.Features = append(f.Features, "x")

	again := s.Fallback(FallbackValidation)
	require.Equal(t, "niet_classificeerbaar", again.Types[0].Type)
	require.Len(t, again.Features, 1)
}

func TestRender(t *testing.T) {
	tpl := Template{
		SystemRole:      "rol",
		TaskDescription: "meldt: {local_description} | {local_predictions}",
		Constraints:     "regels",
	}
	got := tpl.Render(map[string]any{
		"local_description": "Gedetecteerd: Glas (85.0%)",
		"local_predictions": "Glas (0.85), Textiel (0.10)",
	})
	require.Equal(t, "rol\n\nmeldt: Gedetecteerd: Glas (85.0%) | Glas (0.85), Textiel (0.10)\n\nregels", got)
	require.Equal(t, "meldt: {local_description} | {local_predictions}\n\nregels", tpl.Body(nil))
}

func TestDefaultTemplatesHavePlaceholders(t *testing.T) {
	s := Default()
	task := s.Prompts.TextValidation.TaskDescription
	require.True(t, strings.Contains(task, "{local_description}"))
	require.True(t, strings.Contains(task, "{local_predictions}"))
}

func TestLoad(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, s)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("gemini_prompts: {}\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, defaultYAML, 0o644))
	s, err = Load(good)
	require.NoError(t, err)
	require.Contains(t, s.Fallbacks, FallbackError)
}
