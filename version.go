package promptdepot

import (
	"cmp"
	"encoding"
	"fmt"
	"slices"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// SemanticVersion is a MAJOR.MINOR.PATCH version identifier.
// The zero value is 0.0.0. Values are comparable and safe to use as map keys.
type SemanticVersion struct {
	Major uint64
	Minor uint64
	Patch uint64
}

var (
	_ encoding.TextMarshaler   = SemanticVersion{}
	_ encoding.TextUnmarshaler = (*SemanticVersion)(nil)
)

// ParseVersion parses the canonical MAJOR.MINOR.PATCH form.
// A leading "v", missing components, leading zeros, pre-release and build suffixes are rejected.
func ParseVersion(s string) (SemanticVersion, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return SemanticVersion{}, fmt.Errorf("%w: %q: pre-release and build metadata are not supported", ErrInvalidVersion, s)
	}
	return SemanticVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) SemanticVersion {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NormalizeVersion accepts a SemanticVersion, a *SemanticVersion or a version string.
func NormalizeVersion(version any) (SemanticVersion, error) {
	switch v := version.(type) {
	case SemanticVersion:
		return v, nil
	case *SemanticVersion:
		if v == nil {
			return SemanticVersion{}, fmt.Errorf("%w: nil version", ErrInvalidVersion)
		}
		return *v, nil
	case string:
		return ParseVersion(v)
	default:
		return SemanticVersion{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidVersion, version)
	}
}

// Compare returns -1, 0 or +1 comparing major, then minor, then patch.
func (v SemanticVersion) Compare(o SemanticVersion) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

// Less reports whether v orders before o.
func (v SemanticVersion) Less(o SemanticVersion) bool { return v.Compare(o) < 0 }

// NextMajor returns (major+1).0.0.
func (v SemanticVersion) NextMajor() SemanticVersion { return SemanticVersion{Major: v.Major + 1} }

// NextMinor returns major.(minor+1).0.
func (v SemanticVersion) NextMinor() SemanticVersion {
	return SemanticVersion{Major: v.Major, Minor: v.Minor + 1}
}

// NextPatch returns major.minor.(patch+1).
func (v SemanticVersion) NextPatch() SemanticVersion {
	return SemanticVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// String returns the canonical MAJOR.MINOR.PATCH form.
func (v SemanticVersion) String() string {
	b := make([]byte, 0, 16)
	b = strconv.AppendUint(b, v.Major, 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, v.Minor, 10)
	b = append(b, '.')
	b = strconv.AppendUint(b, v.Patch, 10)
	return string(b)
}

// MarshalText implements encoding.TextMarshaler (used by YAML and JSON encoders).
func (v SemanticVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *SemanticVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SortVersions sorts versions ascending in place.
func SortVersions(versions []SemanticVersion) {
	slices.SortFunc(versions, SemanticVersion.Compare)
}
