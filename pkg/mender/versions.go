package mender

import (
	"regexp"

	"golang.org/x/mod/semver"
)

// stablePattern matches "<component>-v<major>.<minor>.<patch>" with nothing
// after the patch number. Suffixed names (-rc1, -dev, -beta, ...) do not
// match and are excluded from selection unconditionally.
var stablePattern = regexp.MustCompile(`^(.+)-v(\d+\.\d+\.\d+)$`)

// ParseVersion extracts the version from an artifact name of the form
// "<component>-v<major>.<minor>.<patch>". It returns the version in
// canonical "vX.Y.Z" form, or "" if the name does not match the component
// or carries any suffix.
func ParseVersion(name, component string) string {
	m := stablePattern.FindStringSubmatch(name)
	if m == nil || m[1] != component {
		return ""
	}
	return "v" + m[2]
}

// LatestStable returns the artifact with the numerically greatest stable
// version for the component, or nil when no stable artifact exists.
func LatestStable(artifacts []Artifact, component string) *Artifact {
	var best *Artifact
	var bestVersion string
	for i := range artifacts {
		v := ParseVersion(artifacts[i].Name, component)
		if v == "" {
			continue
		}
		if best == nil || semver.Compare(v, bestVersion) > 0 {
			best = &artifacts[i]
			bestVersion = v
		}
	}
	return best
}
