package plain

import (
	"fmt"
	"slices"

	"github.com/PolarWolf314/sealctl/internal/configs"
	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
)

// Category is the closed set of resource categories.
type Category string

const (
	CategoryApplications   Category = "applications"
	CategoryServices       Category = "services"
	CategoryInfrastructure Category = "infrastructure"
)

// Categories lists every valid category.
var Categories = []Category{CategoryApplications, CategoryServices, CategoryInfrastructure}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("%w: unknown category %q (valid: %v)", kerrors.ErrInvalidSchema, s, Categories)
	}
	return c, nil
}

// Resource declares the variables of one resource.
type Resource struct {
	Category  Category
	Name      string
	Variables []string
}

// Schema is the validated set of declared resources.
type Schema struct {
	Resources []Resource
}

// SchemaFromConfig validates the [[resources]] entries of the project config.
func SchemaFromConfig(entries []configs.ResourceConfig) (Schema, error) {
	var schema Schema
	seen := map[string]bool{}

	for i, entry := range entries {
		category, err := ParseCategory(entry.Category)
		if err != nil {
			return Schema{}, fmt.Errorf("resources[%d]: %w", i, err)
		}
		if entry.Name == "" {
			return Schema{}, fmt.Errorf("resources[%d]: %w: missing name", i, kerrors.ErrInvalidSchema)
		}

		key := string(category) + "/" + entry.Name
		if seen[key] {
			return Schema{}, fmt.Errorf("resources[%d]: %w: %s declared twice", i, kerrors.ErrInvalidSchema, key)
		}
		seen[key] = true

		vars := slices.Clone(entry.Variables)
		slices.Sort(vars)
		if len(slices.Compact(slices.Clone(vars))) != len(vars) {
			return Schema{}, fmt.Errorf("resources[%d]: %w: %s has duplicate variables", i, kerrors.ErrInvalidSchema, key)
		}
		if slices.Contains(vars, "") {
			return Schema{}, fmt.Errorf("resources[%d]: %w: %s has an empty variable name", i, kerrors.ErrInvalidSchema, key)
		}

		schema.Resources = append(schema.Resources, Resource{Category: category, Name: entry.Name, Variables: vars})
	}

	return schema, nil
}

// Values is category -> resource -> variable -> value.
type Values map[Category]map[string]map[string]string

// Sample returns the full schema shape with every value empty.
func Sample(schema Schema) Values {
	values := Values{}
	for _, r := range schema.Resources {
		if values[r.Category] == nil {
			values[r.Category] = map[string]map[string]string{}
		}
		vars := map[string]string{}
		for _, v := range r.Variables {
			vars[v] = ""
		}
		values[r.Category][r.Name] = vars
	}
	return values
}

// Merge fills sample with the values of existing. Keys not in sample are dropped.
func Merge(existing, sample Values) Values {
	merged := Values{}
	for category, resources := range sample {
		merged[category] = map[string]map[string]string{}
		for name, vars := range resources {
			out := make(map[string]string, len(vars))
			for v := range vars {
				out[v] = existing[category][name][v]
			}
			merged[category][name] = out
		}
	}
	return merged
}
