package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cat(name string) map[string]any {
	return map[string]any{
		"name":            name,
		"description":     "d",
		"service_type":    "s",
		"urgentie_niveau": "laag",
		"recycling_info":  "r",
	}
}

func TestCategoryValidator(t *testing.T) {
	v := CategoryValidator{}

	require.NoError(t, v.Validate(Document{"categories": []any{cat("Glas"), cat("Textiel")}}))

	require.ErrorContains(t, v.Validate(Document{}), "categories")
	require.ErrorContains(t, v.Validate(Document{"categories": map[string]any{}}), "lijst")
	require.ErrorContains(t, v.Validate(Document{"categories": []any{}}), "leeg")

	broken := cat("Glas")
	delete(broken, "recycling_info")
	broken["service_type"] = 3
	err := v.Validate(Document{"categories": []any{broken, "x", cat("Glas"), cat("Glas")}})
	require.Error(t, err)
	require.ErrorContains(t, err, "recycling_info")
	require.ErrorContains(t, err, "service_type moet een string")
	require.ErrorContains(t, err, "categorie 1 moet een map")
	require.ErrorContains(t, err, `naam "Glas" al gebruikt`)
}

func TestValidatorFunc(t *testing.T) {
	called := false
	var v Validator = ValidatorFunc(func(Document) error { called = true; return nil })
	require.NoError(t, v.Validate(nil))
	require.True(t, called)
}
