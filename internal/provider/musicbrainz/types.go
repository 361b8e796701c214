package musicbrainz

// Wire types for the encyclopedia's ws/2 JSON REST API. Only fields the
// adapter consumes are declared here; the real API returns many more.

// MBWorkSearchResponse is the response from /work?query=...
type MBWorkSearchResponse struct {
	Works []MBWork `json:"works"`
}

// MBWork is a work (composition) entity, optionally carrying its
// recording relations when inc=recording-rels is requested.
type MBWork struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Score     int          `json:"score"`
	Relations []MBRelation `json:"relations"`
}

// MBRelation is one artist-rel or recording-rel entry. The `attributes`
// field carries instrument names for relations of type "instrument".
type MBRelation struct {
	Type       string        `json:"type"`
	Attributes []string      `json:"attributes"`
	Artist     *MBArtist     `json:"artist,omitempty"`
	Recording  *MBRecordingRef `json:"recording,omitempty"`
}

// MBRecordingRef is a recording as referenced from a work's relations.
type MBRecordingRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MBArtist is an artist entity, or an artist-credit name.
type MBArtist struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	SortName       string      `json:"sort-name"`
	Disambiguation string      `json:"disambiguation"`
	Type           string      `json:"type"`
	LifeSpan       *MBLifeSpan `json:"life-span,omitempty"`
	Annotation     string      `json:"annotation"`
}

// MBLifeSpan carries an artist's begin/end dates.
type MBLifeSpan struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
}

// MBArtistCredit is one entry of a recording or release's artist-credit
// array: the display name plus the underlying artist entity.
type MBArtistCredit struct {
	Name   string    `json:"name"`
	Artist *MBArtist `json:"artist,omitempty"`
}

// MBRecording is a recording detail response, with releases and artist
// relations when inc=releases+artist-rels is requested.
type MBRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Releases     []MBReleaseRef   `json:"releases"`
	Relations    []MBRelation     `json:"relations"`
}

// MBReleaseRef is a release as referenced from a recording's release
// list, including the recording's track placement on that release's
// media.
type MBReleaseRef struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  string    `json:"date"`
	Media []MBMedia `json:"media"`
}

// MBMedia is one disc of a release, carrying the matched track.
type MBMedia struct {
	Position int       `json:"position"`
	Tracks   []MBTrack `json:"tracks"`
}

// MBTrack is one track of a release's medium.
type MBTrack struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Recording struct {
		ID string `json:"id"`
	} `json:"recording"`
}

// MBRelease is a release detail response.
type MBRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Date         string           `json:"date"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Relations    []MBRelation     `json:"relations"`
}

// MBArtistSearchResponse is the response from /artist?query=...
type MBArtistSearchResponse struct {
	Artists []MBArtist `json:"artists"`
}
