package transform

import "strings"

// StripPostfixes removes every known environment postfix from the end of a
// credential display name. Postfixes are separated from the base name by a
// single space. Stripping repeats until no known postfix remains, so a name
// that went through several migrations still reduces to its base form.
func StripPostfixes(name string, postfixes []string) string {
	name = strings.TrimSpace(name)

	for {
		stripped := false
		for _, postfix := range postfixes {
			postfix = strings.TrimSpace(postfix)
			if postfix == "" {
				continue
			}
			if strings.HasSuffix(name, " "+postfix) {
				name = strings.TrimSpace(strings.TrimSuffix(name, " "+postfix))
				stripped = true
			}
		}
		if !stripped {
			return name
		}
	}
}

// ApplyPostfix returns the display name for a credential in the target
// environment: the base name with every known postfix stripped, then the
// target postfix appended. Applying it twice yields the same result as
// applying it once.
func ApplyPostfix(name, postfix string, known []string) string {
	base := StripPostfixes(name, known)
	postfix = strings.TrimSpace(postfix)
	if postfix == "" {
		return base
	}
	return base + " " + postfix
}
