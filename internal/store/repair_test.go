package store

import (
	"context"
	"testing"

	"github.com/dprodger/jazzref/internal/model"
)

func TestListReleaseStreamingLinksMissingURL_ExcludesManualAndPopulated(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	release := &model.Release{Title: "Giant Steps"}
	if err := s.UpsertRelease(ctx, release); err != nil {
		t.Fatalf("UpsertRelease: %v", err)
	}

	if err := s.UpsertReleaseStreamingLink(ctx, &model.ReleaseStreamingLink{
		ReleaseID: release.ID, Service: model.ServiceA, ServiceID: "missing-url",
		MatchMethod: model.MatchMethodFuzzySearch,
	}); err != nil {
		t.Fatalf("seeding link missing url: %v", err)
	}

	withURLRelease := &model.Release{Title: "A Love Supreme"}
	if err := s.UpsertRelease(ctx, withURLRelease); err != nil {
		t.Fatalf("UpsertRelease: %v", err)
	}
	if err := s.UpsertReleaseStreamingLink(ctx, &model.ReleaseStreamingLink{
		ReleaseID: withURLRelease.ID, Service: model.ServiceA, ServiceID: "has-url", ServiceURL: "https://example.com/x",
		MatchMethod: model.MatchMethodFuzzySearch,
	}); err != nil {
		t.Fatalf("seeding link with url: %v", err)
	}

	links, err := s.ListReleaseStreamingLinksMissingURL(ctx, model.ServiceA)
	if err != nil {
		t.Fatalf("ListReleaseStreamingLinksMissingURL: %v", err)
	}
	if len(links) != 1 || links[0].ServiceID != "missing-url" {
		t.Fatalf("expected exactly the link missing a url, got %+v", links)
	}
}

func TestListOrphanedRecordings_FindsRecordingsWithNoReleaseLinks(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	song := &model.Song{Title: "So What"}
	if err := s.UpsertSong(ctx, song); err != nil {
		t.Fatalf("UpsertSong: %v", err)
	}

	orphan := &model.Recording{SongID: song.ID, ExternalRecordingID: "orphan-rec"}
	if err := s.UpsertRecording(ctx, orphan); err != nil {
		t.Fatalf("UpsertRecording orphan: %v", err)
	}

	linked := &model.Recording{SongID: song.ID, ExternalRecordingID: "linked-rec"}
	if err := s.UpsertRecording(ctx, linked); err != nil {
		t.Fatalf("UpsertRecording linked: %v", err)
	}
	release := &model.Release{Title: "Kind of Blue"}
	if err := s.UpsertRelease(ctx, release); err != nil {
		t.Fatalf("UpsertRelease: %v", err)
	}
	if err := s.LinkRecordingRelease(ctx, &model.RecordingRelease{RecordingID: linked.ID, ReleaseID: release.ID}); err != nil {
		t.Fatalf("LinkRecordingRelease: %v", err)
	}

	orphans, err := s.ListOrphanedRecordings(ctx)
	if err != nil {
		t.Fatalf("ListOrphanedRecordings: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != orphan.ID {
		t.Fatalf("expected exactly the unlinked recording, got %+v", orphans)
	}
}

func TestListPerformersMissingSortName_RequiresExternalArtistID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	needsBackfill := &model.Performer{Name: "John Coltrane", ExternalArtistID: "mb-artist-1"}
	if err := s.UpsertPerformer(ctx, needsBackfill); err != nil {
		t.Fatalf("UpsertPerformer needsBackfill: %v", err)
	}

	alreadyHasSortName := &model.Performer{Name: "Miles Davis", SortName: "Davis, Miles", ExternalArtistID: "mb-artist-2"}
	if err := s.UpsertPerformer(ctx, alreadyHasSortName); err != nil {
		t.Fatalf("UpsertPerformer alreadyHasSortName: %v", err)
	}

	noExternalID := &model.Performer{Name: "Local Quartet"}
	if err := s.UpsertPerformer(ctx, noExternalID); err != nil {
		t.Fatalf("UpsertPerformer noExternalID: %v", err)
	}

	performers, err := s.ListPerformersMissingSortName(ctx)
	if err != nil {
		t.Fatalf("ListPerformersMissingSortName: %v", err)
	}
	if len(performers) != 1 || performers[0].ID != needsBackfill.ID {
		t.Fatalf("expected exactly the performer missing a sort name with an external id, got %+v", performers)
	}
}
