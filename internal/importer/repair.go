package importer

import (
	"context"
	"fmt"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/store"
)

// RepairStats summarizes one repair pass: how many candidate rows were
// examined, how many were actually updated, and any per-row failures
// (which do not abort the pass, matching the original scripts' behavior
// of reporting a summary at the end rather than failing fast).
type RepairStats struct {
	Examined int
	Updated  int
	Errors   []error
}

func (s *RepairStats) recordError(err error) {
	s.Errors = append(s.Errors, err)
}

// RepairStreamingLinks re-queries consumer service A for every release
// streaming link that was matched but never carried a service_url, and
// backfills it. Grounded on repair_apple_links.py, simplified from that
// script's progressive re-search strategies to a direct lookup by the
// service id already on the row, since that id is exactly what the
// original album search resolved to.
func (imp *Importer) RepairStreamingLinks(ctx context.Context) (*RepairStats, error) {
	stats := &RepairStats{}
	if imp.consumerA == nil {
		return stats, nil
	}

	links, err := imp.store.ListReleaseStreamingLinksMissingURL(ctx, model.ServiceA)
	if err != nil {
		return nil, fmt.Errorf("listing streaming links missing url: %w", err)
	}

	for _, link := range links {
		stats.Examined++
		album, err := imp.consumerA.LookupAlbum(ctx, link.ServiceID)
		if err != nil {
			stats.recordError(fmt.Errorf("looking up album %s: %w", link.ServiceID, err))
			continue
		}
		if album == nil || album.ServiceURL == "" {
			continue
		}
		link.ServiceURL = album.ServiceURL
		link.MatchMethod = model.MatchMethodRepairScript
		link.MatchedAt = stampTime()
		if err := imp.store.UpsertReleaseStreamingLink(ctx, &link); err != nil {
			var conflict *store.ErrManualOverrideConflict
			if isManualOverrideConflict(err, &conflict) {
				continue
			}
			stats.recordError(fmt.Errorf("updating streaming link %s: %w", link.ID, err))
			continue
		}
		stats.Updated++
	}
	return stats, nil
}

// RepairOrphanedRecordings re-links recordings that carry an
// external_recording_id but have no recording_releases rows: it re-fetches
// the encyclopedia's recording detail and replays the release
// reconciliation step of the enrichment pipeline for that recording alone.
// Grounded on repair_orphaned_recordings.py's OrphanedRecordingRepairer.
func (imp *Importer) RepairOrphanedRecordings(ctx context.Context) (*RepairStats, error) {
	stats := &RepairStats{}

	orphans, err := imp.store.ListOrphanedRecordings(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orphaned recordings: %w", err)
	}

	for _, orphan := range orphans {
		stats.Examined++
		if err := imp.repairOrphanedRecording(ctx, orphan); err != nil {
			stats.recordError(fmt.Errorf("recording %s: %w", orphan.ID, err))
			continue
		}
		stats.Updated++
	}
	return stats, nil
}

func (imp *Importer) repairOrphanedRecording(ctx context.Context, orphan model.Recording) error {
	detail, err := imp.encyclopedia.RecordingDetail(ctx, orphan.ExternalRecordingID)
	if err != nil {
		return fmt.Errorf("fetching recording detail: %w", err)
	}
	if detail == nil || len(detail.Releases) == 0 {
		return fmt.Errorf("encyclopedia has no releases for this recording")
	}

	return imp.store.WithTx(ctx, func(tx *store.Store) error {
		var releaseIDs []string
		for _, ref := range detail.Releases {
			releaseID, err := imp.reconcileRelease(ctx, tx, orphan.ID, ref, &Stats{})
			if err != nil {
				return fmt.Errorf("reconciling release %q: %w", ref.Title, err)
			}
			releaseIDs = append(releaseIDs, releaseID)
			link := &model.RecordingRelease{
				RecordingID: orphan.ID,
				ReleaseID:   releaseID,
				DiscNumber:  ref.DiscNumber,
				TrackNumber: ref.TrackNumber,
				TrackTitle:  ref.TrackTitle,
			}
			if err := tx.LinkRecordingRelease(ctx, link); err != nil {
				return fmt.Errorf("linking recording to release: %w", err)
			}
		}
		if orphan.DefaultReleaseID == "" && len(releaseIDs) > 0 {
			if err := tx.SetDefaultRelease(ctx, orphan.ID, releaseIDs[0]); err != nil {
				return fmt.Errorf("setting default release: %w", err)
			}
		}
		return nil
	})
}

// BackfillPerformerSortNames fills in sort_name, disambiguation and
// artist_type for performers that were created from an artist-rel without
// one, by re-fetching the performer's full artist detail. Grounded on
// backfill_performer_sort_names.py.
func (imp *Importer) BackfillPerformerSortNames(ctx context.Context) (*RepairStats, error) {
	stats := &RepairStats{}

	performers, err := imp.store.ListPerformersMissingSortName(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing performers missing sort name: %w", err)
	}

	for _, p := range performers {
		stats.Examined++
		detail, err := imp.encyclopedia.ArtistDetail(ctx, p.ExternalArtistID)
		if err != nil {
			stats.recordError(fmt.Errorf("fetching artist detail for %s: %w", p.ID, err))
			continue
		}
		if detail == nil || detail.SortName == "" {
			continue
		}
		p.SortName = detail.SortName
		if p.Disambiguation == "" {
			p.Disambiguation = detail.Disambiguation
		}
		if detail.ArtistType != "" {
			p.ArtistType = detail.ArtistType
		}
		if err := imp.store.UpsertPerformer(ctx, &p); err != nil {
			stats.recordError(fmt.Errorf("updating performer %s: %w", p.ID, err))
			continue
		}
		stats.Updated++
	}
	return stats, nil
}
