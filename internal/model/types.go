// Package model defines the normalized internal vocabulary that every
// provider adapter translates its payloads into, and the entity types
// the store persists.
package model

import "time"

// Role classifies a performer's participation in a recording.
type Role string

// Known recording_performers roles.
const (
	RoleLeader  Role = "leader"
	RoleSideman Role = "sideman"
	RoleOther   Role = "other"
)

// ImagerySource identifies which provider supplied a piece of release art.
type ImagerySource string

// Known imagery sources.
const (
	ImagerySourceEncyclopedia ImagerySource = "encyclopedia"
	ImagerySourceConsumerA    ImagerySource = "consumer-service-a"
)

// ImageryType classifies the side of the album the image depicts.
type ImageryType string

// Known imagery types.
const (
	ImageryFront ImageryType = "front"
	ImageryBack  ImageryType = "back"
)

// MatchMethod records how a streaming link was established.
type MatchMethod string

// Known match methods.
const (
	MatchMethodManual       MatchMethod = "manual"
	MatchMethodFuzzySearch  MatchMethod = "fuzzy_search"
	MatchMethodRepairScript MatchMethod = "repair_script"
)

// StreamingService identifies a consumer music service.
type StreamingService string

// Known streaming services.
const (
	ServiceA StreamingService = "service-a"
	ServiceB StreamingService = "service-b"
)

// ArtistType classifies a Performer.
type ArtistType string

// Known artist types.
const (
	ArtistTypePerson ArtistType = "person"
	ArtistTypeGroup  ArtistType = "group"
	ArtistTypeOther  ArtistType = "other"
)

// Song is the abstract musical composition a Recording performs.
type Song struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Composer           string            `json:"composer"`
	ExternalWorkID     string            `json:"external_work_id,omitempty"`
	SecondaryWorkID    string            `json:"secondary_work_id,omitempty"`
	Structure          string            `json:"structure,omitempty"`
	ExternalReferences map[string]string `json:"external_references,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Recording is a single performance session belonging to exactly one Song.
type Recording struct {
	ID                 string     `json:"id"`
	SongID             string     `json:"song_id"`
	AlbumTitle         string     `json:"album_title,omitempty"`
	RecordingYear      int        `json:"recording_year,omitempty"`
	RecordingDate      string     `json:"recording_date,omitempty"`
	ExternalRecordingID string    `json:"external_recording_id,omitempty"`
	IsCanonical        bool       `json:"is_canonical"`
	DefaultReleaseID   string     `json:"default_release_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Release represents one published album edition.
type Release struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	ArtistCredit      string     `json:"artist_credit,omitempty"`
	ReleaseYear       int        `json:"release_year,omitempty"`
	ExternalReleaseID string     `json:"external_release_id,omitempty"`
	CoverArtCheckedAt *time.Time `json:"cover_art_checked_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Performer is a person, group, or other credited artist.
type Performer struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	SortName         string     `json:"sort_name,omitempty"`
	Biography        string     `json:"biography,omitempty"`
	BirthDate        string     `json:"birth_date,omitempty"`
	DeathDate        string     `json:"death_date,omitempty"`
	ExternalArtistID string     `json:"external_artist_id,omitempty"`
	Disambiguation   string     `json:"disambiguation,omitempty"`
	ArtistType       ArtistType `json:"artist_type"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Instrument is a playable instrument, unique by name (case-insensitive).
type Instrument struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordingPerformer links a Performer (optionally with an Instrument) to a Recording.
type RecordingPerformer struct {
	ID           string  `json:"id"`
	RecordingID  string  `json:"recording_id"`
	PerformerID  string  `json:"performer_id"`
	InstrumentID *string `json:"instrument_id,omitempty"`
	Role         Role    `json:"role"`
}

// RecordingRelease links a Recording to a Release with track placement.
type RecordingRelease struct {
	ID          string `json:"id"`
	RecordingID string `json:"recording_id"`
	ReleaseID   string `json:"release_id"`
	DiscNumber  *int   `json:"disc_number,omitempty"`
	TrackNumber *int   `json:"track_number,omitempty"`
	TrackTitle  string `json:"track_title,omitempty"`
}

// ReleaseImagery is one piece of cover art for a release from a given source.
type ReleaseImagery struct {
	ID         string        `json:"id"`
	ReleaseID  string        `json:"release_id"`
	Source     ImagerySource `json:"source"`
	Type       ImageryType   `json:"type"`
	SmallURL   string        `json:"small_url,omitempty"`
	MediumURL  string        `json:"medium_url,omitempty"`
	LargeURL   string        `json:"large_url,omitempty"`
	SourceID   string        `json:"source_id,omitempty"`
	SourceURL  string        `json:"source_url,omitempty"`
	Checksum   string        `json:"checksum,omitempty"`
	Approved   bool          `json:"approved"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ReleaseStreamingLink links a Release to a streaming service.
type ReleaseStreamingLink struct {
	ID          string           `json:"id"`
	ReleaseID   string           `json:"release_id"`
	Service     StreamingService `json:"service"`
	ServiceID   string           `json:"service_id"`
	ServiceURL  string           `json:"service_url,omitempty"`
	MatchMethod MatchMethod      `json:"match_method"`
	MatchedAt   time.Time        `json:"matched_at"`
}

// RecordingReleaseStreamingLink links a specific track (recording+release pair)
// to a streaming service.
type RecordingReleaseStreamingLink struct {
	ID                 string           `json:"id"`
	RecordingReleaseID string           `json:"recording_release_id"`
	Service            StreamingService `json:"service"`
	ServiceID          string           `json:"service_id"`
	ServiceURL         string           `json:"service_url,omitempty"`
	MatchMethod        MatchMethod      `json:"match_method"`
	MatchedAt          time.Time        `json:"matched_at"`
}

// UserContribution is a community annotation on a recording.
type UserContribution struct {
	ID             string  `json:"id"`
	RecordingID    string  `json:"recording_id"`
	UserID         string  `json:"user_id"`
	PerformanceKey *string `json:"performance_key,omitempty"`
	TempoBPM       *int    `json:"tempo_bpm,omitempty"`
	IsInstrumental *bool   `json:"is_instrumental,omitempty"`
}

// IsEmpty reports whether all optional fields of a contribution are
// cleared, the condition under which the row should be deleted.
func (c UserContribution) IsEmpty() bool {
	return c.PerformanceKey == nil && c.TempoBPM == nil && c.IsInstrumental == nil
}

// ArtistImage is a licensed performer portrait from the editorial image archive.
type ArtistImage struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	License     string    `json:"license"`
	Attribution string    `json:"attribution,omitempty"`
	SourcePage  string    `json:"source_page,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ArtistImageLink associates a Performer with an ArtistImage.
type ArtistImageLink struct {
	PerformerID string `json:"performer_id"`
	ImageID     string `json:"image_id"`
}
