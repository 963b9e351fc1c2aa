package selector

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/manifests"
)

// PriorityNamespace is always listed first.
const PriorityNamespace = "applications"

// Item is one selectable entry.
type Item struct {
	Label string
	// Group is shown as a header whenever it changes between consecutive items.
	Group string
	// Selected marks the item as preselected.
	Selected bool
}

// Prompter asks the operator to pick a subset of items.
type Prompter interface {
	// SelectMany returns the indices of the chosen items.
	SelectMany(ctx context.Context, label string, items []Item) ([]int, error)
}

// Selection maps a secret to the sorted, unique field keys chosen for it.
type Selection map[manifests.Ref][]string

// Refs returns the selected secrets sorted by namespace then name.
func (s Selection) Refs() []manifests.Ref {
	return slices.SortedFunc(maps.Keys(s), func(a, b manifests.Ref) int {
		return cmp.Or(cmp.Compare(a.Namespace, b.Namespace), cmp.Compare(a.Name, b.Name))
	})
}

// Add records fields for ref, merging with anything already selected.
func (s Selection) Add(ref manifests.Ref, fields ...string) {
	merged := append(slices.Clone(s[ref]), fields...)
	slices.Sort(merged)
	merged = slices.Compact(merged)
	if len(merged) == 0 {
		delete(s, ref)
		return
	}
	s[ref] = merged
}

// Group is the secrets of one namespace.
type Group struct {
	Namespace string
	Secrets   []*manifests.SecretDoc
}

// GroupByNamespace groups secrets with PriorityNamespace first and the remaining
// namespaces in first-seen order. Secrets keep their input order inside a group.
func GroupByNamespace(secrets []*manifests.SecretDoc) []Group {
	index := map[string]int{}
	var groups []Group

	for _, s := range secrets {
		i, ok := index[s.Namespace]
		if !ok {
			i = len(groups)
			index[s.Namespace] = i
			groups = append(groups, Group{Namespace: s.Namespace})
		}
		groups[i].Secrets = append(groups[i].Secrets, s)
	}

	if i, ok := index[PriorityNamespace]; ok && i != 0 {
		priority := groups[i]
		groups = append(groups[:i], groups[i+1:]...)
		groups = append([]Group{priority}, groups...)
	}

	return groups
}

// UnsealedFields returns the fields of secret that have no ciphertext in sealed.
// A nil sealed document means every field is unsealed.
func UnsealedFields(secret *manifests.SecretDoc, sealed *manifests.SealedSecretDoc) []string {
	var out []string
	for _, key := range secret.FieldKeys() {
		if sealed == nil {
			out = append(out, key)
			continue
		}
		if _, ok := sealed.Sealed.Spec.EncryptedData[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

// Selector runs the two selection stages.
type Selector struct {
	Prompter Prompter
	Logger   logger.Logger
}

// SelectSecrets runs stage one. Secrets with unsealed fields are preselected.
// With no secrets it returns nothing without prompting.
// Returns ErrEmptySelection when the operator chooses nothing.
func (s *Selector) SelectSecrets(ctx context.Context, secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) ([]*manifests.SecretDoc, error) {
	var ordered []*manifests.SecretDoc
	var items []Item

	for _, group := range GroupByNamespace(secrets) {
		for _, secret := range group.Secrets {
			existing, _ := manifests.FindSealed(sealed, secret.Ref())
			ordered = append(ordered, secret)
			items = append(items, Item{
				Label:    secret.Ref().String(),
				Group:    group.Namespace,
				Selected: len(UnsealedFields(secret, existing)) > 0,
			})
		}
	}

	if len(items) == 0 {
		return nil, nil
	}

	chosen, err := s.Prompter.SelectMany(ctx, "Which secrets do you want to update?", items)
	if err != nil {
		return nil, err
	}
	if len(chosen) == 0 {
		return nil, kerrors.ErrEmptySelection
	}

	out := make([]*manifests.SecretDoc, 0, len(chosen))
	for _, i := range chosen {
		if i < 0 || i >= len(ordered) {
			return nil, fmt.Errorf("prompter returned out of range index %d", i)
		}
		out = append(out, ordered[i])
	}
	return out, nil
}

// SelectFields runs stage two for one secret. Unsealed fields are preselected.
func (s *Selector) SelectFields(ctx context.Context, secret *manifests.SecretDoc, sealed *manifests.SealedSecretDoc) ([]string, error) {
	keys := secret.FieldKeys()
	if len(keys) == 0 {
		s.Logger.Infof("Secret %s has no fields, nothing to select", secret.Ref())
		return nil, nil
	}

	unsealed := UnsealedFields(secret, sealed)
	items := make([]Item, len(keys))
	for i, key := range keys {
		items[i] = Item{Label: key, Selected: slices.Contains(unsealed, key)}
	}

	label := fmt.Sprintf("Fields of %s (%s)", secret.Name, secret.Namespace)
	chosen, err := s.Prompter.SelectMany(ctx, label, items)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(chosen))
	for _, i := range chosen {
		if i < 0 || i >= len(keys) {
			return nil, fmt.Errorf("prompter returned out of range index %d", i)
		}
		fields = append(fields, keys[i])
	}
	return fields, nil
}

// Select runs both stages. Secrets with no fields chosen in stage two are dropped.
func (s *Selector) Select(ctx context.Context, secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) (Selection, error) {
	chosen, err := s.SelectSecrets(ctx, secrets, sealed)
	if err != nil {
		return nil, err
	}

	selection := Selection{}
	for _, secret := range chosen {
		existing, _ := manifests.FindSealed(sealed, secret.Ref())
		fields, err := s.SelectFields(ctx, secret, existing)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			s.Logger.Infof("No fields chosen for %s, leaving it untouched", secret.Ref())
			continue
		}
		selection.Add(secret.Ref(), fields...)
	}

	return selection, nil
}

// SelectUnsealed builds a Selection of every unsealed field without prompting.
func SelectUnsealed(secrets []*manifests.SecretDoc, sealed []*manifests.SealedSecretDoc) Selection {
	selection := Selection{}
	for _, secret := range secrets {
		existing, _ := manifests.FindSealed(sealed, secret.Ref())
		selection.Add(secret.Ref(), UnsealedFields(secret, existing)...)
	}
	return selection
}

// SelectAll builds a Selection of every field of every secret.
func SelectAll(secrets []*manifests.SecretDoc) Selection {
	selection := Selection{}
	for _, secret := range secrets {
		selection.Add(secret.Ref(), secret.FieldKeys()...)
	}
	return selection
}
