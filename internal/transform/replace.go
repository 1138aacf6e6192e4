package transform

import "sort"

// Rule is a named, environment-scoped literal substitution: for each
// environment it lists the literal value that environment uses.
type Rule struct {
	Name        string
	Description string
	Values      map[string]string
}

// Warning reports a rule that could not be applied for the target
// environment. It is informational, not an error: the original literal is
// left in place.
type Warning struct {
	Rule        string
	Environment string
}

// Replacer rewrites environment-specific literals inside decoded resource
// bodies. Only whole-value string matches are replaced; a literal embedded
// in a longer string is never touched, so unrelated data cannot be
// corrupted.
type Replacer struct {
	replacements map[string]string
}

// NewReplacer compiles the rules for a target environment. For every rule
// that defines a value for the target, each of the rule's other-environment
// values becomes a key mapping to the target value. Rules without a target
// value are skipped and reported as warnings.
func NewReplacer(rules []Rule, targetEnv string) (*Replacer, []Warning) {
	replacements := make(map[string]string)
	var warnings []Warning

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, rule := range sorted {
		target, ok := rule.Values[targetEnv]
		if !ok {
			warnings = append(warnings, Warning{Rule: rule.Name, Environment: targetEnv})
			continue
		}
		for env, value := range rule.Values {
			if env == targetEnv || value == target {
				continue
			}
			replacements[value] = target
		}
	}

	return &Replacer{replacements: replacements}, warnings
}

// Empty reports whether the replacer has nothing to substitute.
func (r *Replacer) Empty() bool {
	return len(r.replacements) == 0
}

// Apply walks a decoded document (maps, sequences, scalars) and returns a
// copy with every exact-match string scalar substituted. The input is never
// mutated.
func (r *Replacer) Apply(doc any) any {
	if r.Empty() {
		return doc
	}
	return r.walk(doc)
}

// ApplyToNodes applies substitution across a workflow's node documents.
func (r *Replacer) ApplyToNodes(nodes []map[string]any) []map[string]any {
	if r.Empty() || nodes == nil {
		return nodes
	}
	out := make([]map[string]any, len(nodes))
	for i, node := range nodes {
		out[i] = r.walkMap(node)
	}
	return out
}

func (r *Replacer) walk(v any) any {
	switch val := v.(type) {
	case string:
		if replaced, ok := r.replacements[val]; ok {
			return replaced
		}
		return val
	case map[string]any:
		return r.walkMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.walk(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = r.walkMap(item)
		}
		return out
	default:
		return val
	}
}

func (r *Replacer) walkMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = r.walk(v)
	}
	return out
}
