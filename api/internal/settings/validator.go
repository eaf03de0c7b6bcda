package settings

import (
	"errors"
	"fmt"
)

type Validator interface {
	Validate(doc Document) error
}

type ValidatorFunc func(doc Document) error

func (f ValidatorFunc) Validate(doc Document) error { return f(doc) }

var categoryFields = []string{"name", "description", "service_type", "urgentie_niveau", "recycling_info"}

// CategoryValidator checks the "categories" list of app_config. Every problem is
// reported, not just the first.
type CategoryValidator struct{}

func (CategoryValidator) Validate(doc Document) error {
	raw, ok := doc["categories"]
	if !ok {
		return errors.New("verplichte sleutel ontbreekt: categories")
	}
	list, ok := raw.([]any)
	if !ok {
		return errors.New("sleutel categories moet een lijst zijn")
	}
	if len(list) == 0 {
		return errors.New("categories is leeg")
	}

	var errs []error
	seen := make(map[string]int, len(list))
	for i, item := range list {
		cat, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("categorie %d moet een map zijn", i))
			continue
		}
		for _, f := range categoryFields {
			v, present := cat[f]
			if !present {
				errs = append(errs, fmt.Errorf("categorie %d: verplichte sleutel ontbreekt: %s", i, f))
				continue
			}
			if _, isStr := v.(string); !isStr {
				errs = append(errs, fmt.Errorf("categorie %d: sleutel %s moet een string zijn", i, f))
			}
		}
		if name, _ := cat["name"].(string); name != "" {
			if j, dup := seen[name]; dup {
				errs = append(errs, fmt.Errorf("categorie %d: naam %q al gebruikt door categorie %d", i, name, j))
			}
			seen[name] = i
		} else if _, isStr := cat["name"].(string); isStr {
			errs = append(errs, fmt.Errorf("categorie %d: naam is leeg", i))
		}
	}
	return errors.Join(errs...)
}
