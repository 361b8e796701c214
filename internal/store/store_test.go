package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dprodger/jazzref/internal/database"
	"github.com/dprodger/jazzref/internal/model"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jazzref-test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db, nil); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return New(db), db
}

func TestUpsertSong_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{Title: "So What", Composer: "Miles Davis", ExternalWorkID: "ext-1"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}
	if song.ID == "" {
		t.Fatal("expected UpsertSong to assign an id")
	}

	got, err := s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got == nil {
		t.Fatal("expected song to be found")
	}
	if got.Title != "So What" || got.Composer != "Miles Davis" || got.ExternalWorkID != "ext-1" {
		t.Fatalf("unexpected round-tripped song: %+v", got)
	}

	song.Composer = "Miles Davis and Bill Evans"
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("re-UpsertSong: %v", err)
	}
	got, err = s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong after update: %v", err)
	}
	if got.Composer != "Miles Davis and Bill Evans" {
		t.Fatalf("expected update to take effect, got %q", got.Composer)
	}
}

func TestGetSong_MissingReturnsNilNil(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.GetSong(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing song, got %+v", got)
	}
}

func TestFindSongByNormalizedTitle_MatchesAcrossVariants(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{Title: "The Night Has a Thousand Eyes"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}

	got, err := s.FindSongByNormalizedTitle(ctx, "night has a thousand eyes")
	if err != nil {
		t.Fatalf("FindSongByNormalizedTitle: %v", err)
	}
	if got == nil || got.ID != song.ID {
		t.Fatalf("expected to find song by normalized title, got %+v", got)
	}
}

func TestLinkRecordingPerformer_RelinkWithoutInstrumentUpsertsSingleRow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{Title: "Take Five"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}
	recording := &model.Recording{SongID: song.ID}
	if err := s.UpsertRecording(ctx, recording); err != nil {
		t.Fatalf("UpsertRecording: %v", err)
	}
	performer := &model.Performer{Name: "Paul Desmond"}
	if err := s.UpsertPerformer(ctx, performer); err != nil {
		t.Fatalf("UpsertPerformer: %v", err)
	}

	link := &model.RecordingPerformer{RecordingID: recording.ID, PerformerID: performer.ID, Role: model.RoleLeader}
	if err := s.LinkRecordingPerformer(ctx, link); err != nil {
		t.Fatalf("first LinkRecordingPerformer: %v", err)
	}

	link2 := &model.RecordingPerformer{RecordingID: recording.ID, PerformerID: performer.ID, Role: model.RoleLeader}
	if err := s.LinkRecordingPerformer(ctx, link2); err != nil {
		t.Fatalf("idempotent re-link with no instrument should upsert cleanly: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recording_performers WHERE recording_id = ? AND performer_id = ?`,
		recording.ID, performer.ID).Scan(&count); err != nil {
		t.Fatalf("counting recording_performers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the no-instrument credit to upsert into a single row, got %d rows", count)
	}
}

func TestUpsertReleaseStreamingLink_RefusesToOverwriteManual(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	release := &model.Release{Title: "Time Out"}
	if err := s.UpsertRelease(ctx, release); err != nil {
		t.Fatalf("UpsertRelease: %v", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO release_streaming_links (id, release_id, service, service_id, match_method, matched_at)
		VALUES ('manual-link', ?, 'service-a', 'manual-id', 'manual', '2020-01-01T00:00:00Z')
	`, release.ID)
	if err != nil {
		t.Fatalf("seeding manual streaming link: %v", err)
	}

	pipelineLink := &model.ReleaseStreamingLink{
		ReleaseID:   release.ID,
		Service:     model.ServiceA,
		ServiceID:   "pipeline-id",
		MatchMethod: model.MatchMethodFuzzySearch,
	}
	err = s.UpsertReleaseStreamingLink(ctx, pipelineLink)
	var conflict *ErrManualOverrideConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrManualOverrideConflict, got %v", err)
	}

	var serviceID string
	if err := s.db.QueryRowContext(ctx,
		`SELECT service_id FROM release_streaming_links WHERE release_id = ? AND service = 'service-a'`,
		release.ID).Scan(&serviceID); err != nil {
		t.Fatalf("reading back streaming link: %v", err)
	}
	if serviceID != "manual-id" {
		t.Fatalf("manual row was overwritten, service_id now %q", serviceID)
	}
}

func TestUpsertReleaseStreamingLink_RejectsManualFromPipeline(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	release := &model.Release{Title: "Time Out"}
	if err := s.UpsertRelease(ctx, release); err != nil {
		t.Fatalf("UpsertRelease: %v", err)
	}

	link := &model.ReleaseStreamingLink{
		ReleaseID:   release.ID,
		Service:     model.ServiceA,
		ServiceID:   "x",
		MatchMethod: model.MatchMethodManual,
	}
	if err := s.UpsertReleaseStreamingLink(ctx, link); err == nil {
		t.Fatal("expected error when pipeline claims match_method=manual")
	}
}

func TestUpsertSong_ExternalReferencesRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{
		Title:              "Round Midnight",
		ExternalReferences: map[string]string{"wikipedia": "https://en.wikipedia.org/wiki/Round_Midnight"},
	}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}

	got, err := s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong: %v", err)
	}
	if got.ExternalReferences["wikipedia"] != "https://en.wikipedia.org/wiki/Round_Midnight" {
		t.Fatalf("expected external reference to round-trip, got %+v", got.ExternalReferences)
	}

	song.ExternalReferences = map[string]string{"discogs": "https://discogs.com/round-midnight"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("re-UpsertSong: %v", err)
	}
	got, err = s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong after replace: %v", err)
	}
	if _, ok := got.ExternalReferences["wikipedia"]; ok {
		t.Fatalf("expected replace semantics to drop the old reference, got %+v", got.ExternalReferences)
	}
	if got.ExternalReferences["discogs"] != "https://discogs.com/round-midnight" {
		t.Fatalf("expected new reference to be present, got %+v", got.ExternalReferences)
	}
}

func TestDeleteSong_CascadesToRecordings(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{Title: "Blue in Green"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}
	rec := &model.Recording{SongID: song.ID}
	if err := s.UpsertRecording(ctx, rec); err != nil {
		t.Fatalf("UpsertRecording: %v", err)
	}

	if err := s.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}

	if got, err := s.GetSong(ctx, song.ID); err != nil || got != nil {
		t.Fatalf("expected song to be gone, got %+v, err %v", got, err)
	}
	if got, err := s.GetRecording(ctx, rec.ID); err != nil || got != nil {
		t.Fatalf("expected cascaded recording to be gone, got %+v, err %v", got, err)
	}
}

func TestMergeSongs_RepointsRecordingsAndDropsDuplicates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	keep := &model.Song{Title: "Naima", ExternalReferences: map[string]string{"wikipedia": "https://en.wikipedia.org/wiki/Naima"}}
	if err := s.UpsertSong(ctx, keep); err != nil {
		t.Fatalf("UpsertSong keep: %v", err)
	}
	extra := &model.Song{Title: "Naima (alt spelling)", ExternalWorkID: "ext-work-2", ExternalReferences: map[string]string{"discogs": "https://discogs.com/naima"}}
	if err := s.UpsertSong(ctx, extra); err != nil {
		t.Fatalf("UpsertSong extra: %v", err)
	}

	sharedRec := &model.Recording{SongID: keep.ID, ExternalRecordingID: "dup-rec"}
	if err := s.UpsertRecording(ctx, sharedRec); err != nil {
		t.Fatalf("UpsertRecording shared on keep: %v", err)
	}
	dupRec := &model.Recording{SongID: extra.ID, ExternalRecordingID: "dup-rec"}
	if err := s.UpsertRecording(ctx, dupRec); err != nil {
		t.Fatalf("UpsertRecording shared on extra: %v", err)
	}
	uniqueRec := &model.Recording{SongID: extra.ID, ExternalRecordingID: "unique-rec"}
	if err := s.UpsertRecording(ctx, uniqueRec); err != nil {
		t.Fatalf("UpsertRecording unique on extra: %v", err)
	}

	if err := s.MergeSongs(ctx, keep.ID, extra.ID); err != nil {
		t.Fatalf("MergeSongs: %v", err)
	}

	if got, err := s.GetSong(ctx, extra.ID); err != nil || got != nil {
		t.Fatalf("expected extra song to be deleted, got %+v, err %v", got, err)
	}

	got, err := s.GetSong(ctx, keep.ID)
	if err != nil {
		t.Fatalf("GetSong keep: %v", err)
	}
	if got.SecondaryWorkID != "ext-work-2" {
		t.Fatalf("expected extra's external work id to become keep's secondary, got %q", got.SecondaryWorkID)
	}
	if got.ExternalReferences["wikipedia"] == "" || got.ExternalReferences["discogs"] == "" {
		t.Fatalf("expected external references to union, got %+v", got.ExternalReferences)
	}

	recs, err := s.ListRecordingsBySong(ctx, keep.ID)
	if err != nil {
		t.Fatalf("ListRecordingsBySong: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected the duplicate recording to be dropped and the unique one moved, got %d recordings", len(recs))
	}
}

func TestUpsertInstrument_FindsExistingCaseInsensitively(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertInstrument(ctx, "Tenor Saxophone")
	if err != nil {
		t.Fatalf("UpsertInstrument: %v", err)
	}
	b, err := s.UpsertInstrument(ctx, "tenor saxophone")
	if err != nil {
		t.Fatalf("UpsertInstrument second call: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected case-insensitive instrument lookup to return the same row, got %s and %s", a.ID, b.ID)
	}
}
