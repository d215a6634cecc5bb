// Package format derives an SSTableInfo from any component filename in a
// Cassandra 5 SSTable directory, and resolves paths to its companions
// (spec §3.4, §4.3). It holds no parsing state; every function is pure over
// its string/path arguments.
package format

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// Family is the SSTable format generation a file belongs to.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyV2x            // ic, jb
	FamilyV3x            // ma, mb, mc
	FamilyV4x            // na, nb
	FamilyV5x            // oa
)

func (f Family) String() string {
	switch f {
	case FamilyV2x:
		return "V2x"
	case FamilyV3x:
		return "V3x"
	case FamilyV4x:
		return "V4x"
	case FamilyV5x:
		return "V5x"
	default:
		return "Unknown"
	}
}

// SupportsCompression reports whether this format family carries a
// CompressionInfo.db component at all (spec §3.4: "Only V4x+ supports
// compression in this core").
func (f Family) SupportsCompression() bool {
	return f == FamilyV4x || f == FamilyV5x
}

var familyByTag = map[string]Family{
	"ic": FamilyV2x, "jb": FamilyV2x,
	"ma": FamilyV3x, "mb": FamilyV3x, "mc": FamilyV3x,
	"na": FamilyV4x, "nb": FamilyV4x,
	"oa": FamilyV5x,
}

// Component names the eight recognized file roles (spec §4.3).
type Component string

const (
	ComponentData            Component = "Data"
	ComponentIndex           Component = "Index"
	ComponentSummary         Component = "Summary"
	ComponentFilter          Component = "Filter"
	ComponentStatistics      Component = "Statistics"
	ComponentCompressionInfo Component = "CompressionInfo"
	ComponentTOC             Component = "TOC"
	ComponentDigest          Component = "Digest"
)

// knownComponents is the fixed set the reader may look for next to any one
// component file it was handed.
var knownComponents = []Component{
	ComponentData, ComponentIndex, ComponentSummary, ComponentFilter,
	ComponentStatistics, ComponentCompressionInfo, ComponentTOC, ComponentDigest,
}

// filenamePattern matches "[<base>-]<gen>-<tag>[-<version>]-<Component>.db",
// e.g. "1-oa-Data.db" as sstable/writer names files. An optional lowercase
// version token after the tag (Cassandra's "big") is matched and ignored.
// Names that put the tag before the generation ("nb-1-big-Data.db") do not
// match.
var filenamePattern = regexp.MustCompile(`^(?:([A-Za-z0-9_]+)-)?(\d+)-([a-z]{2})-(?:([a-z]+)-)?([A-Za-z]+)\.db$`)

// SSTableInfo is the parsed identity of one SSTable's component file set
// (spec §4.3).
type SSTableInfo struct {
	Dir             string
	BaseName        string // keyspace/table prefix, if the filename carries one; may be empty
	Generation      int64
	Family          Family
	FormatTag       string // the two-letter tag, e.g. "nb"
	Component       Component
	KnownCompanions map[Component]bool
}

// Parse derives an SSTableInfo from the filename at path. path need not
// exist on disk; Parse only inspects the name.
func Parse(path string) (SSTableInfo, error) {
	base := filepath.Base(path)
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return SSTableInfo{}, xerrors.New(xerrors.KindUnknownFormat, "format.Parse").WithWhere(base)
	}
	baseName, genStr, tag, _, compStr := m[1], m[2], m[3], m[4], m[5]

	family, ok := familyByTag[tag]
	if !ok {
		return SSTableInfo{}, xerrors.New(xerrors.KindUnknownFormat, "format.Parse").WithWhere(fmt.Sprintf("unrecognized format tag %q", tag))
	}

	gen, err := strconv.ParseInt(genStr, 10, 64)
	if err != nil {
		return SSTableInfo{}, xerrors.Wrap(xerrors.KindUnknownFormat, "format.Parse", err)
	}

	comp, ok := validComponent(compStr)
	if !ok {
		return SSTableInfo{}, xerrors.New(xerrors.KindUnknownFormat, "format.Parse").WithWhere(fmt.Sprintf("unrecognized component %q", compStr))
	}

	info := SSTableInfo{
		Dir:             filepath.Dir(path),
		BaseName:        baseName,
		Generation:      gen,
		Family:          family,
		FormatTag:       tag,
		Component:       comp,
		KnownCompanions: map[Component]bool{},
	}
	for _, c := range knownComponents {
		info.KnownCompanions[c] = true
	}
	return info, nil
}

func validComponent(s string) (Component, bool) {
	c := Component(s)
	for _, k := range knownComponents {
		if k == c {
			return c, true
		}
	}
	return "", false
}

// CompanionPath builds the path to the named companion component of the
// same SSTable generation.
func (info SSTableInfo) CompanionPath(c Component) string {
	name := fmt.Sprintf("%s-%d-%s-%s.db", prefixOrEmpty(info.BaseName), info.Generation, info.FormatTag, string(c))
	if info.BaseName == "" {
		name = fmt.Sprintf("%d-%s-%s.db", info.Generation, info.FormatTag, string(c))
	}
	return filepath.Join(info.Dir, name)
}

func prefixOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return s
}

// DataPath is shorthand for CompanionPath(ComponentData).
func (info SSTableInfo) DataPath() string { return info.CompanionPath(ComponentData) }

// HasComponent reports whether c is among the file set this SSTableInfo
// knows to look for (always true today; kept as an extension point for
// partial/degraded SSTable directories).
func (info SSTableInfo) HasComponent(c Component) bool {
	return info.KnownCompanions[c]
}
