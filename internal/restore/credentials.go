package restore

import (
	"fmt"
	"strings"

	"github.com/flowctl/flowctl/internal/client"
	"github.com/flowctl/flowctl/internal/config"
	"github.com/flowctl/flowctl/internal/graph"
	"github.com/flowctl/flowctl/internal/mapping"
	"github.com/flowctl/flowctl/internal/transform"
)

// CredentialMapper resolves logical credential keys referenced by workflows
// to usable credentials on the target server, reusing previously mapped
// credentials where they still exist and creating the rest from the target
// environment's templates.
type CredentialMapper struct {
	client       client.Interface
	store        *mapping.Store
	env          *config.Environment
	envKey       string
	sourceServer string
	targetServer string
	postfixes    []string
	replacer     *transform.Replacer
}

// NewCredentialMapper wires a mapper for one restore run.
func NewCredentialMapper(c client.Interface, store *mapping.Store, env *config.Environment, envKey, sourceServer, targetServer string, postfixes []string, replacer *transform.Replacer) *CredentialMapper {
	return &CredentialMapper{
		client:       c,
		store:        store,
		env:          env,
		envKey:       envKey,
		sourceServer: sourceServer,
		targetServer: targetServer,
		postfixes:    postfixes,
		replacer:     replacer,
	}
}

// Template finds the environment's credential template for a logical key.
// The key is matched against template keys and template display names, case
// insensitively and with underscores treated as spaces, after stripping
// every known postfix.
func (m *CredentialMapper) Template(key string) (*config.CredentialTemplate, error) {
	base := normalizeCredentialKey(transform.StripPostfixes(key, m.postfixes))

	for tmplKey, tmpl := range m.env.Credentials {
		if normalizeCredentialKey(tmplKey) == base {
			t := tmpl
			return &t, nil
		}
		tmplBase := transform.StripPostfixes(tmpl.Name, m.postfixes)
		if normalizeCredentialKey(tmplBase) == base {
			t := tmpl
			return &t, nil
		}
	}

	return nil, &MissingTemplateError{Key: key, Environment: m.envKey}
}

// Resolve returns the target credential identity for a logical key, creating
// the credential when no valid mapping exists yet. Returns the mapping entry
// and whether a credential was created in this call.
func (m *CredentialMapper) Resolve(key string) (mapping.Entry, bool, error) {
	tmpl, err := m.Template(key)
	if err != nil {
		return mapping.Entry{}, false, err
	}

	storeKey := m.storeKey(key)

	// Reuse a previous run's credential if the target still has it.
	if entry, ok := m.store.Get(storeKey); ok {
		if _, err := m.client.GetCredential(entry.TargetID); err == nil {
			return entry, false, nil
		} else if !client.IsNotFound(err) {
			return mapping.Entry{}, false, fmt.Errorf("failed to validate mapped credential %q: %w", entry.TargetName, err)
		}
		// Stale mapping: the credential was deleted on the target.
		m.store.Delete(storeKey)
	}

	name := transform.ApplyPostfix(tmpl.Name, m.env.Postfix, m.postfixes)

	data := tmpl.Data
	if m.replacer != nil {
		data, _ = m.replacer.Apply(tmpl.Data).(map[string]any)
	}

	created, err := m.client.CreateCredential(&client.Credential{
		Name: name,
		Type: tmpl.Type,
		Data: data,
	})
	if err != nil {
		return mapping.Entry{}, false, &CreateRejectedError{
			Kind:     string(graph.KindCredential),
			SourceID: key,
			Name:     name,
			Err:      err,
		}
	}

	entry := mapping.Entry{
		Kind:         string(graph.KindCredential),
		SourceServer: m.sourceServer,
		SourceID:     key,
		TargetServer: m.targetServer,
		TargetID:     created.ID,
		TargetName:   created.Name,
		ToolManaged:  true,
	}
	if entry.TargetName == "" {
		entry.TargetName = name
	}
	m.store.Put(entry)

	return entry, true, nil
}

func (m *CredentialMapper) storeKey(key string) mapping.Key {
	return mapping.Key{
		Kind:         string(graph.KindCredential),
		SourceServer: m.sourceServer,
		SourceID:     key,
		TargetServer: m.targetServer,
	}
}

func normalizeCredentialKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
}
