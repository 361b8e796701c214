package importer

import (
	"strings"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
)

// nonPerformingRelations are artist-rel types that never carry an
// instrument and are never eligible for leader/sideman classification,
// per the role-assignment rule.
var nonPerformingRelations = map[string]bool{
	"engineer":  true,
	"producer":  true,
	"mix":       true,
	"mastering": true,
}

// leaderSet splits an artist-credit string into the set of leader names
// a rel's artist is checked against. Callers pass the recording's own
// artist-credit, falling back to the first release's credit when the
// recording-level one is blank, per the role-assignment rule.
func leaderSet(credit string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range splitCredit(credit) {
		set[normalize.Title(name)] = true
	}
	return set
}

// splitCredit breaks an artist-credit string on the common join tokens
// MusicBrainz uses between multiple credited artists.
func splitCredit(credit string) []string {
	replacer := strings.NewReplacer(" & ", "|", " feat. ", "|", " with ", "|", ", ", "|")
	parts := strings.Split(replacer.Replace(credit), "|")
	var names []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// classifyRole applies the role-assignment rule to one artist-rel.
func classifyRole(rel model.ArtistRef, leaders map[string]bool) model.Role {
	if nonPerformingRelations[strings.ToLower(rel.RelationType)] {
		return model.RoleOther
	}
	if leaders[normalize.Title(rel.Name)] {
		return model.RoleLeader
	}
	for leader := range leaders {
		if normalize.IsGroupLeader(leader, rel.Name) {
			return model.RoleLeader
		}
	}
	return model.RoleSideman
}

// ensureLeader promotes the first non-"other" credit to leader when the
// classification pass produced none: every recording must end up with at
// least one leader row.
func ensureLeader(credits []recordingPerformerCredit) {
	for _, c := range credits {
		if c.role == model.RoleLeader {
			return
		}
	}
	for i := range credits {
		if credits[i].role != model.RoleOther {
			credits[i].role = model.RoleLeader
			return
		}
	}
}

// recordingPerformerCredit is one (performer, instrument, role) triple
// pending a write into recording_performers. instrumentName is empty
// when the artist-rel carried no instrument attribute.
type recordingPerformerCredit struct {
	performerID    string
	performerRef   model.ArtistRef
	instrumentName string
	role           model.Role
}
