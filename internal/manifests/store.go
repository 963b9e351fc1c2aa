package manifests

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	sigsyaml "sigs.k8s.io/yaml"

	kerrors "github.com/PolarWolf314/sealctl/internal/errors"
	logger "github.com/PolarWolf314/sealctl/internal/logging"
	"github.com/PolarWolf314/sealctl/internal/plain"
)

// LoadOptions restricts which files take part in a load.
type LoadOptions struct {
	// Only holds doublestar patterns matched against the slash separated path
	// relative to the environment root. Empty means every file.
	Only []string
}

// LoadReport summarises a load.
type LoadReport struct {
	Files     int
	Documents int
	// Errors holds one *errors.ManifestParseError per skipped file.
	Errors []error
}

// Store holds every document of one environment in traversal order.
type Store struct {
	root string
	docs []*Document
}

// Root returns the environment manifests root.
func (s *Store) Root() string { return s.root }

// Documents returns every loaded document.
func (s *Store) Documents() []*Document { return s.docs }

// ByKind returns the documents of the given kind in load order.
func (s *Store) ByKind(kind string) []*Document {
	var out []*Document
	for _, d := range s.docs {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Load walks root and parses every manifest below it.
func Load(ctx context.Context, root string, opts LoadOptions, log logger.Logger) (*Store, *LoadReport, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, nil, &kerrors.DirectoryNotFoundError{Path: absRoot}
	}

	for _, p := range opts.Only {
		if !doublestar.ValidatePattern(p) {
			return nil, nil, fmt.Errorf("invalid manifest filter %q", p)
		}
	}

	store := &Store{root: absRoot}
	report := &LoadReport{}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !isManifestFile(path) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if !matchesAny(opts.Only, filepath.ToSlash(rel)) {
			log.Debugf("Skipping %s: not matched by filters", rel)
			return nil
		}

		report.Files++
		docs, err := parseFile(path)
		if err != nil {
			parseErr := &kerrors.ManifestParseError{Path: path, Err: err}
			log.Warnf("Skipping %s: %v", path, err)
			report.Errors = append(report.Errors, parseErr)
			return nil
		}

		baseDir := resourceBaseDir(absRoot, rel)
		for _, doc := range docs {
			doc.SourcePath = path
			doc.ResourceBaseDir = baseDir
		}
		store.docs = append(store.docs, docs...)
		report.Documents += len(docs)
		log.Debugf("Loaded %d documents from %s", len(docs), rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	return store, report, nil
}

func isManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func matchesAny(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// resourceBaseDir is root/<category>/<resource> for files below a category
// directory and root/<first component> otherwise. Files directly in root and
// the SealedSecrets of a whole category belong to the nearer directory.
func resourceBaseDir(root, rel string) string {
	dir := filepath.Dir(rel)
	if dir == "." {
		return root
	}
	parts := strings.Split(filepath.ToSlash(dir), "/")
	if len(parts) >= 2 && isCategoryDir(parts[0]) && parts[1] != SealedSecretsDir {
		return filepath.Join(root, parts[0], parts[1])
	}
	return filepath.Join(root, parts[0])
}

func isCategoryDir(name string) bool {
	return slices.Contains(plain.Categories, plain.Category(name))
}

// parseFile splits a YAML stream into documents. Any broken document fails the file.
func parseFile(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var docs []*Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for index := 0; ; index++ {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if isEmptyDocument(&node) {
			continue
		}

		raw, err := yaml.Marshal(&node)
		if err != nil {
			return nil, err
		}

		var h header
		if err := sigsyaml.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("document %d: %w", index, err)
		}

		docs = append(docs, &Document{
			Kind:        h.Kind,
			APIVersion:  h.APIVersion,
			Name:        h.Metadata.Name,
			Namespace:   h.Metadata.Namespace,
			Annotations: h.Metadata.Annotations,
			Index:       index,
			Raw:         raw,
		})
	}

	return docs, nil
}

func isEmptyDocument(node *yaml.Node) bool {
	if node.Kind == 0 {
		return true
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return true
		}
		inner := node.Content[0]
		return inner.Kind == yaml.ScalarNode && inner.Tag == "!!null"
	}
	return false
}

// Secrets decodes every Secret document. Secrets without a name or namespace
// are returned as *errors.InvalidSecretError and left out.
func (s *Store) Secrets() ([]*SecretDoc, []error) {
	var out []*SecretDoc
	var errs []error

	for _, d := range s.ByKind(KindSecret) {
		if err := checkIdentity(d); err != nil {
			errs = append(errs, err)
			continue
		}

		secret := &corev1.Secret{}
		if err := sigsyaml.Unmarshal(d.Raw, secret); err != nil {
			errs = append(errs, &kerrors.InvalidSecretError{
				Path: d.SourcePath, Name: d.Name, Namespace: d.Namespace,
				Reason: err.Error(),
			})
			continue
		}
		out = append(out, &SecretDoc{Document: d, Secret: secret})
	}

	return out, errs
}

// SealedSecrets decodes every SealedSecret document.
func (s *Store) SealedSecrets() ([]*SealedSecretDoc, []error) {
	var out []*SealedSecretDoc
	var errs []error

	for _, d := range s.ByKind(KindSealedSecret) {
		if err := checkIdentity(d); err != nil {
			errs = append(errs, err)
			continue
		}

		sealed := &SealedSecret{}
		if err := sigsyaml.Unmarshal(d.Raw, sealed); err != nil {
			errs = append(errs, &kerrors.InvalidSecretError{
				Path: d.SourcePath, Name: d.Name, Namespace: d.Namespace,
				Reason: err.Error(),
			})
			continue
		}
		out = append(out, &SealedSecretDoc{Document: d, Sealed: sealed})
	}

	return out, errs
}

func checkIdentity(d *Document) error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "metadata.name")
	}
	if d.Namespace == "" {
		missing = append(missing, "metadata.namespace")
	}
	if len(missing) == 0 {
		return nil
	}
	return &kerrors.InvalidSecretError{
		Path:      d.SourcePath,
		Name:      d.Name,
		Namespace: d.Namespace,
		Reason:    "missing " + strings.Join(missing, " and "),
	}
}

// FindSealed returns the first SealedSecret matching ref in load order, and
// any later duplicates for the caller to report.
func FindSealed(sealed []*SealedSecretDoc, ref Ref) (*SealedSecretDoc, []*SealedSecretDoc) {
	var first *SealedSecretDoc
	var dupes []*SealedSecretDoc
	for _, s := range sealed {
		if s.Ref() != ref {
			continue
		}
		if first == nil {
			first = s
			continue
		}
		dupes = append(dupes, s)
	}
	return first, dupes
}
