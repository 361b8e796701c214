package normalize

import "regexp"

// ensembleSuffix matches a trailing ensemble designation: "Trio",
// "Quartet", ..., "Orchestra", "Big Band", or an "and His/Her
// Orchestra/Band/..." construction. It is applied repeatedly so
// "Count Basie and His Orchestra" and "Ahmad Jamal Trio" both reduce to
// the leader's bare name.
var ensembleSuffix = regexp.MustCompile(`(?i)\s+(trio|quartet|quintet|sextet|septet|octet|nonet|combo|ensemble|orchestra|big band|band|group|and\s+(his|her|their)\s+(orchestra|band|combo|group|ensemble))\s*$`)

// ArtistCore strips ensemble suffixes from name, repeatedly, to derive
// the core name used for group-leader matching.
func ArtistCore(name string) string {
	for {
		stripped := ensembleSuffix.ReplaceAllString(name, "")
		if stripped == name {
			return name
		}
		name = stripped
	}
}

// IsGroupLeader reports whether candidateName is the leader of an
// ensemble credited as ensembleName: their normalized core names match.
func IsGroupLeader(ensembleName, candidateName string) bool {
	return Title(ArtistCore(ensembleName)) == Title(candidateName)
}
