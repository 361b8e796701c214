// Package importer implements the enrichment pipeline: given a song, it
// resolves or creates the song, discovers its recordings and releases from
// the encyclopedia adapter, reconciles performers and instruments against
// the store, fetches cover art and performer images, and writes everything
// inside one transaction per recording. Streaming links are matched in a
// separate pass (MatchStreamingLinks) outside those transactions.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dprodger/jazzref/internal/cache"
	"github.com/dprodger/jazzref/internal/httpclient"
	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
	"github.com/dprodger/jazzref/internal/provider/coverartarchive"
	"github.com/dprodger/jazzref/internal/provider/itunes"
	"github.com/dprodger/jazzref/internal/provider/jazzstandards"
	"github.com/dprodger/jazzref/internal/provider/musicbrainz"
	"github.com/dprodger/jazzref/internal/provider/spotify"
	"github.com/dprodger/jazzref/internal/provider/wikiimages"
	"github.com/dprodger/jazzref/internal/resolve"
	"github.com/dprodger/jazzref/internal/store"
)

// Store is the subset of *store.Store the importer depends on, narrowed so
// the orchestration logic can be tested against an in-memory fake.
type Store interface {
	resolve.SongLookup
	resolve.PerformerLookup
	resolve.ReleaseLookup

	GetSong(ctx context.Context, id string) (*model.Song, error)
	UpsertSong(ctx context.Context, song *model.Song) error

	GetRecording(ctx context.Context, id string) (*model.Recording, error)
	FindRecordingByExternalID(ctx context.Context, id string) (*model.Recording, error)
	ListRecordingsBySong(ctx context.Context, songID string) ([]model.Recording, error)
	UpsertRecording(ctx context.Context, rec *model.Recording) error
	SetDefaultRelease(ctx context.Context, recordingID, releaseID string) error

	GetRelease(ctx context.Context, id string) (*model.Release, error)
	UpsertRelease(ctx context.Context, rel *model.Release) error
	MarkReleaseChecked(ctx context.Context, releaseID string) error

	GetPerformer(ctx context.Context, id string) (*model.Performer, error)
	UpsertPerformer(ctx context.Context, p *model.Performer) error

	UpsertInstrument(ctx context.Context, name string) (*model.Instrument, error)

	LinkRecordingRelease(ctx context.Context, link *model.RecordingRelease) error
	GetRecordingRelease(ctx context.Context, recordingID, releaseID string) (string, error)
	LinkRecordingPerformer(ctx context.Context, link *model.RecordingPerformer) error

	UpsertReleaseImagery(ctx context.Context, img *model.ReleaseImagery) error
	UpsertArtistImage(ctx context.Context, performerID string, img *model.ArtistImage) error

	UpsertReleaseStreamingLink(ctx context.Context, link *model.ReleaseStreamingLink) error
	UpsertTrackStreamingLink(ctx context.Context, link *model.RecordingReleaseStreamingLink) error

	ListReleaseStreamingLinksMissingURL(ctx context.Context, service model.StreamingService) ([]model.ReleaseStreamingLink, error)
	ListOrphanedRecordings(ctx context.Context) ([]model.Recording, error)
	ListPerformersMissingSortName(ctx context.Context) ([]model.Performer, error)

	WithTx(ctx context.Context, fn func(*store.Store) error) error
}

// Importer wires the encyclopedia, cover-art, editorial, consumer-service
// and image-archive adapters to the store and runs the enrichment pipeline.
// It is single-threaded per seed: two concurrent imports must never share a
// provider client, and Importer holds exactly one of each.
type Importer struct {
	store        Store
	encyclopedia *musicbrainz.Adapter
	coverArt     *coverartarchive.Adapter
	editorial    *jazzstandards.Adapter
	consumerA    *itunes.Adapter
	consumerB    *spotify.Adapter
	images       *wikiimages.Adapter
	logger       *slog.Logger
}

// New builds an Importer. consumerA, consumerB, editorial and images may be
// nil when their credentials or scope are not configured; the pipeline
// skips steps that need a nil adapter rather than failing the seed.
func New(
	st Store,
	encyclopedia *musicbrainz.Adapter,
	coverArt *coverartarchive.Adapter,
	editorial *jazzstandards.Adapter,
	consumerA *itunes.Adapter,
	consumerB *spotify.Adapter,
	images *wikiimages.Adapter,
	logger *slog.Logger,
) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:        st,
		encyclopedia: encyclopedia,
		coverArt:     coverArt,
		editorial:    editorial,
		consumerA:    consumerA,
		consumerB:    consumerB,
		images:       images,
		logger:       logger,
	}
}

// EnrichRequest describes one seed invocation of the pipeline.
type EnrichRequest struct {
	// Exactly one of SongID or SongTitle must be set: SongID re-enriches
	// a known song, SongTitle resolves or creates one by title.
	SongID    string
	SongTitle string

	// Limit bounds how many recordings are processed, 0 means unbounded.
	Limit int

	// DryRun runs every lookup and scoring step but performs no writes.
	DryRun bool

	// ForceRefresh bypasses cache reads for this seed (CLI --force-refresh).
	ForceRefresh bool

	// MatchStreaming additionally runs the streaming-link matching pass.
	MatchStreaming bool
}

// Stats summarizes one EnrichSong run.
type Stats struct {
	RecordingsFound   int
	RecordingsSkipped int
	ReleasesImported  int
	ReleasesUpdated   int
	PerformersLinked  int
	Errors            int
}

// EnrichResult is the outcome of one EnrichSong call.
type EnrichResult struct {
	Success bool
	Song    *model.Song
	Stats   Stats
	Errors  []error
}

// EnrichSong runs the full pipeline for one song: resolve-or-create the
// song, walk its recordings from the encyclopedia adapter, and reconcile
// each recording's releases, performers, instruments and imagery inside
// its own transaction. A failure on one recording rolls back only that
// recording and advances to the next; a provider-wide failure (rate-limit
// cooldown exceeded) aborts the seed.
func (imp *Importer) EnrichSong(ctx context.Context, req EnrichRequest) (*EnrichResult, error) {
	if req.ForceRefresh {
		ctx = cache.WithForceRefresh(ctx)
	}

	result := &EnrichResult{}

	song, err := imp.resolveSong(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolving song: %w", err)
	}
	result.Song = song

	work, err := imp.encyclopedia.SearchWork(ctx, song.Title)
	if err != nil {
		return nil, fmt.Errorf("looking up encyclopedia work: %w", err)
	}
	if work == nil {
		result.Success = true
		return result, nil
	}

	if !req.DryRun && song.ExternalWorkID == "" {
		song.ExternalWorkID = work.ExternalWorkID
		if err := imp.store.UpsertSong(ctx, song); err != nil {
			return nil, fmt.Errorf("saving resolved work id: %w", err)
		}
	}

	releaseRefs, err := imp.encyclopedia.WorkRecordings(ctx, work.ExternalWorkID)
	if err != nil {
		return nil, fmt.Errorf("listing work recordings: %w", err)
	}

	recordingIDs := uniqueExternalRecordingIDs(releaseRefs)
	result.Stats.RecordingsFound = len(recordingIDs)
	if req.Limit > 0 && len(recordingIDs) > req.Limit {
		imp.logger.Info("bounding recordings to limit", "found", len(recordingIDs), "limit", req.Limit)
		recordingIDs = recordingIDs[:req.Limit]
	}

	for _, externalRecordingID := range recordingIDs {
		if err := imp.enrichRecording(ctx, song, externalRecordingID, req, &result.Stats); err != nil {
			var rateLimited *httpclient.ProviderRateLimited
			if errors.As(err, &rateLimited) {
				return nil, fmt.Errorf("aborting seed at recording %s: %w", externalRecordingID, err)
			}
			result.Stats.Errors++
			result.Errors = append(result.Errors, fmt.Errorf("recording %s: %w", externalRecordingID, err))
			imp.logger.Error("recording enrichment failed, continuing", "external_recording_id", externalRecordingID, "error", err)
		}
	}

	result.Success = result.Stats.Errors == 0
	return result, nil
}

// resolveSong applies the resolution policy to the request's song title,
// or loads it directly when SongID is given, creating a stub row when
// nothing matches.
func (imp *Importer) resolveSong(ctx context.Context, req EnrichRequest) (*model.Song, error) {
	if req.SongID != "" {
		song, err := imp.store.GetSong(ctx, req.SongID)
		if err != nil {
			return nil, err
		}
		if song == nil {
			return nil, fmt.Errorf("no song with id %q", req.SongID)
		}
		return song, nil
	}

	res, matched, err := resolve.Song(ctx, imp.store, "", req.SongTitle)
	if err != nil {
		return nil, err
	}
	switch res.Method {
	case resolve.MatchByExternalID, resolve.MatchByExactName:
		return matched, nil
	case resolve.MatchByFuzzy:
		if res.Ambiguous {
			return nil, fmt.Errorf("%q matches %d existing songs ambiguously", req.SongTitle, res.Candidates)
		}
		return imp.store.GetSong(ctx, res.MatchedID)
	}

	song := &model.Song{
		ID:        newID(),
		Title:     req.SongTitle,
		CreatedAt: stampTime(),
		UpdatedAt: stampTime(),
	}
	if imp.editorial != nil {
		page, err := imp.stubFromEditorial(ctx, req.SongTitle)
		if err != nil {
			imp.logger.Warn("editorial stub lookup failed, continuing with a bare stub", "title", req.SongTitle, "error", err)
		} else if page != nil {
			song.Composer = page.Composer
			song.Structure = page.Description
		}
	}
	if req.DryRun {
		return song, nil
	}
	if err := imp.store.UpsertSong(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// stubFromEditorial looks up title in the editorial adapter's index and, on
// a match, scrapes its song page for the composer/description fields a new
// stub row should carry. A nil return with a nil
// error means the title has no editorial page, not an error worth surfacing.
func (imp *Importer) stubFromEditorial(ctx context.Context, title string) (*model.SongPage, error) {
	entries, err := imp.editorial.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing editorial index: %w", err)
	}
	entry, ok := bestIndexMatch(entries, title)
	if !ok {
		return nil, nil
	}
	page, err := imp.editorial.SongPage(ctx, entry.URL)
	if err != nil {
		return nil, fmt.Errorf("scraping editorial song page %q: %w", entry.URL, err)
	}
	return page, nil
}

// bestIndexMatch finds the index entry whose title best matches title,
// preferring an exact normalized match and otherwise the top fuzzy score,
// accepted only at or above normalize.AcceptThreshold.
func bestIndexMatch(entries []model.IndexEntry, title string) (model.IndexEntry, bool) {
	var best model.IndexEntry
	bestScore := -1
	for _, e := range entries {
		if normalize.Title(e.Title) == normalize.Title(title) {
			return e, true
		}
		if score := normalize.Score(title, e.Title); score > bestScore {
			best, bestScore = e, score
		}
	}
	if bestScore >= normalize.AcceptThreshold {
		return best, true
	}
	return model.IndexEntry{}, false
}

// enrichRecording reconciles one encyclopedia recording and everything it
// references, in a deterministic write order: the recording row, each
// release followed by its recording_release link, the default release,
// then per credit the instrument and the recording_performer link, then
// release imagery and performer images. Streaming links are not written
// here; MatchStreamingLinks writes them in a separate pass. The whole
// recording runs inside one transaction so a mid-recording failure leaves
// no partial row behind.
func (imp *Importer) enrichRecording(ctx context.Context, song *model.Song, externalRecordingID string, req EnrichRequest, stats *Stats) error {
	detail, err := imp.encyclopedia.RecordingDetail(ctx, externalRecordingID)
	if err != nil {
		return fmt.Errorf("fetching recording detail: %w", err)
	}
	if detail == nil {
		stats.RecordingsSkipped++
		return nil
	}

	if req.DryRun {
		return imp.planRecording(ctx, song, externalRecordingID, detail, stats)
	}

	return imp.store.WithTx(ctx, func(tx *store.Store) error {
		return imp.writeRecording(ctx, tx, song, externalRecordingID, detail, stats)
	})
}

// planRecording runs every lookup a write pass would, without touching the
// store, so --dry-run can report accurate stats.
func (imp *Importer) planRecording(ctx context.Context, song *model.Song, externalRecordingID string, detail *model.EncRecording, stats *Stats) error {
	rec, err := imp.store.FindRecordingByExternalID(ctx, externalRecordingID)
	if err != nil {
		return err
	}
	if rec == nil {
		stats.ReleasesImported += len(detail.Releases)
	} else {
		stats.ReleasesUpdated += len(detail.Releases)
	}
	rels, err := imp.effectiveArtistRels(ctx, detail)
	if err != nil {
		return err
	}
	stats.PerformersLinked += len(rels)
	return nil
}

// effectiveArtistRels returns the recording's artist-rels, falling back to
// each release's own artist-rels when the recording carries none: some
// encyclopedia recordings list performers only against the release, not the
// recording itself.
func (imp *Importer) effectiveArtistRels(ctx context.Context, detail *model.EncRecording) ([]model.ArtistRef, error) {
	if len(detail.ArtistRels) > 0 || imp.encyclopedia == nil {
		return detail.ArtistRels, nil
	}
	for _, releaseRef := range detail.Releases {
		release, err := imp.encyclopedia.ReleaseDetail(ctx, releaseRef.ExternalReleaseID)
		if err != nil {
			return nil, fmt.Errorf("fetching release detail for artist-rels fallback: %w", err)
		}
		if release != nil && len(release.ArtistRels) > 0 {
			return release.ArtistRels, nil
		}
	}
	return nil, nil
}

func (imp *Importer) writeRecording(ctx context.Context, tx *store.Store, song *model.Song, externalRecordingID string, detail *model.EncRecording, stats *Stats) error {
	rec, err := tx.FindRecordingByExternalID(ctx, externalRecordingID)
	if err != nil {
		return err
	}
	isNew := rec == nil
	if isNew {
		rec = &model.Recording{
			ID:                  newID(),
			SongID:              song.ID,
			ExternalRecordingID: externalRecordingID,
		}
	}
	rec.SongID = song.ID
	if len(detail.Releases) > 0 {
		rec.AlbumTitle = firstNonEmpty(rec.AlbumTitle, detail.Releases[0].Title)
		rec.RecordingYear = firstPositiveYear(rec.RecordingYear, detail.Releases[0].Year)
	}
	if err := tx.UpsertRecording(ctx, rec); err != nil {
		return fmt.Errorf("upserting recording: %w", err)
	}

	leaders := leaderSet(detail.ArtistCredit)
	if len(leaders) == 0 && len(detail.Releases) > 0 && imp.encyclopedia != nil {
		release, err := imp.encyclopedia.ReleaseDetail(ctx, detail.Releases[0].ExternalReleaseID)
		if err != nil {
			return fmt.Errorf("fetching release detail for artist-credit fallback: %w", err)
		}
		if release != nil {
			leaders = leaderSet(release.ArtistCredit)
		}
	}

	artistRels, err := imp.effectiveArtistRels(ctx, detail)
	if err != nil {
		return err
	}

	releaseIDs := make([]string, 0, len(detail.Releases))
	for _, releaseRef := range detail.Releases {
		releaseID, err := imp.reconcileRelease(ctx, tx, rec.ID, releaseRef, stats)
		if err != nil {
			return fmt.Errorf("reconciling release %q: %w", releaseRef.Title, err)
		}
		releaseIDs = append(releaseIDs, releaseID)

		link := &model.RecordingRelease{
			RecordingID: rec.ID,
			ReleaseID:   releaseID,
			DiscNumber:  releaseRef.DiscNumber,
			TrackNumber: releaseRef.TrackNumber,
			TrackTitle:  releaseRef.TrackTitle,
		}
		if err := tx.LinkRecordingRelease(ctx, link); err != nil {
			return fmt.Errorf("linking recording to release: %w", err)
		}
	}
	if rec.DefaultReleaseID == "" && len(releaseIDs) > 0 {
		if err := tx.SetDefaultRelease(ctx, rec.ID, releaseIDs[0]); err != nil {
			return fmt.Errorf("setting default release: %w", err)
		}
	}

	credits, err := imp.reconcilePerformers(ctx, tx, artistRels, leaders)
	if err != nil {
		return fmt.Errorf("reconciling performers: %w", err)
	}
	ensureLeader(credits)
	for _, c := range credits {
		link := &model.RecordingPerformer{
			RecordingID: rec.ID,
			PerformerID: c.performerID,
			Role:        c.role,
		}
		if c.instrumentName != "" {
			inst, err := tx.UpsertInstrument(ctx, c.instrumentName)
			if err != nil {
				return fmt.Errorf("upserting instrument %q: %w", c.instrumentName, err)
			}
			link.InstrumentID = &inst.ID
		}
		if err := tx.LinkRecordingPerformer(ctx, link); err != nil {
			return fmt.Errorf("linking performer %q: %w", c.performerRef.Name, err)
		}
		stats.PerformersLinked++
	}

	for _, releaseID := range releaseIDs {
		if err := imp.enrichReleaseImagery(ctx, tx, releaseID); err != nil {
			imp.logger.Warn("cover art enrichment failed, continuing", "release_id", releaseID, "error", err)
		}
	}

	if imp.images != nil {
		for _, c := range credits {
			if err := imp.enrichPerformerImage(ctx, tx, c.performerID, c.performerRef); err != nil {
				imp.logger.Warn("performer image enrichment failed, continuing", "performer_id", c.performerID, "error", err)
			}
		}
	}

	return nil
}

// reconcileRelease resolves one encyclopedia release reference against the
// recording's existing releases, creating a new row when nothing matches.
func (imp *Importer) reconcileRelease(ctx context.Context, tx *store.Store, recordingID string, ref model.EncReleaseRef, stats *Stats) (string, error) {
	res, matched, err := resolve.Release(ctx, tx, recordingID, ref.ExternalReleaseID, ref.Title, ref.Year)
	if err != nil {
		return "", err
	}

	var release *model.Release
	switch res.Method {
	case resolve.MatchByExternalID, resolve.MatchByExactName:
		release = matched
	case resolve.MatchByFuzzy:
		if res.Ambiguous {
			return "", fmt.Errorf("release %q matches %d candidates ambiguously", ref.Title, res.Candidates)
		}
		release, err = tx.GetRelease(ctx, res.MatchedID)
		if err != nil {
			return "", err
		}
	}

	if release == nil {
		release = &model.Release{
			ID:                newID(),
			Title:             ref.Title,
			ExternalReleaseID: ref.ExternalReleaseID,
			ReleaseYear:       ref.Year,
		}
		stats.ReleasesImported++
	} else {
		if release.ExternalReleaseID == "" {
			release.ExternalReleaseID = ref.ExternalReleaseID
		}
		stats.ReleasesUpdated++
	}
	if err := tx.UpsertRelease(ctx, release); err != nil {
		return "", err
	}
	return release.ID, nil
}

// reconcilePerformers resolves every artist-rel on a recording against the
// store's performers, classifying each with the role-assignment rule.
func (imp *Importer) reconcilePerformers(ctx context.Context, tx *store.Store, rels []model.ArtistRef, leaders map[string]bool) ([]recordingPerformerCredit, error) {
	credits := make([]recordingPerformerCredit, 0, len(rels))
	for _, rel := range rels {
		performerID, err := imp.reconcilePerformer(ctx, tx, rel)
		if err != nil {
			return nil, err
		}
		role := classifyRole(rel, leaders)
		if len(rel.Instruments) == 0 {
			credits = append(credits, recordingPerformerCredit{
				performerID:  performerID,
				performerRef: rel,
				role:         role,
			})
			continue
		}
		for _, instrument := range rel.Instruments {
			credits = append(credits, recordingPerformerCredit{
				performerID:    performerID,
				performerRef:   rel,
				instrumentName: instrument,
				role:           role,
			})
		}
	}
	return credits, nil
}

func (imp *Importer) reconcilePerformer(ctx context.Context, tx *store.Store, rel model.ArtistRef) (string, error) {
	res, matched, err := resolve.Performer(ctx, tx, rel.ExternalArtistID, rel.Name, rel.BirthYear)
	if err != nil {
		return "", err
	}

	var performer *model.Performer
	switch res.Method {
	case resolve.MatchByExternalID, resolve.MatchByExactName:
		performer = matched
	case resolve.MatchByFuzzy:
		if res.Ambiguous {
			return "", fmt.Errorf("performer %q matches %d candidates ambiguously", rel.Name, res.Candidates)
		}
		performer, err = tx.GetPerformer(ctx, res.MatchedID)
		if err != nil {
			return "", err
		}
	}

	if performer == nil {
		performer = &model.Performer{
			ID:               newID(),
			Name:             rel.Name,
			SortName:         rel.SortName,
			Disambiguation:   rel.Disambiguation,
			ExternalArtistID: rel.ExternalArtistID,
			ArtistType:       model.ArtistTypePerson,
		}
	} else if performer.ExternalArtistID == "" {
		performer.ExternalArtistID = rel.ExternalArtistID
	}
	if err := tx.UpsertPerformer(ctx, performer); err != nil {
		return "", err
	}
	return performer.ID, nil
}

// enrichReleaseImagery fetches cover art for one release and writes at most
// one front and one back image: the cover-art archive orders images best
// first, so the first occurrence of each type wins, matching the store's
// upsert-overwrites-on-conflict semantics for this table.
func (imp *Importer) enrichReleaseImagery(ctx context.Context, tx *store.Store, releaseID string) error {
	if imp.coverArt == nil {
		return nil
	}
	release, err := tx.GetRelease(ctx, releaseID)
	if err != nil {
		return err
	}
	if release == nil || release.ExternalReleaseID == "" {
		return nil
	}
	if release.CoverArtCheckedAt != nil {
		return nil
	}

	result, err := imp.coverArt.Images(ctx, release.ExternalReleaseID)
	if err != nil {
		return err
	}
	if !result.Checked {
		return nil
	}
	if len(result.Images) == 0 {
		return tx.MarkReleaseChecked(ctx, releaseID)
	}

	seen := make(map[model.ImageryType]bool, 2)
	for _, img := range result.Images {
		if seen[img.Type] {
			continue
		}
		seen[img.Type] = true
		err := tx.UpsertReleaseImagery(ctx, &model.ReleaseImagery{
			ReleaseID: releaseID,
			Source:    model.ImagerySourceEncyclopedia,
			Type:      img.Type,
			SmallURL:  img.SmallURL,
			MediumURL: img.MediumURL,
			LargeURL:  img.LargeURL,
			SourceID:  img.SourceID,
			SourceURL: img.SourceURL,
		})
		if err != nil {
			return err
		}
	}
	return tx.MarkReleaseChecked(ctx, releaseID)
}

// enrichPerformerImage looks up a portrait for a performer from the
// editorial image archive under the page title "File:<performer name>.jpg"
// and stores the first result whose license is known.
func (imp *Importer) enrichPerformerImage(ctx context.Context, tx *store.Store, performerID string, rel model.ArtistRef) error {
	results, err := imp.images.SearchImages(ctx, "File:"+rel.Name+".jpg")
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.License == "unknown" {
			continue
		}
		err := tx.UpsertArtistImage(ctx, performerID, &model.ArtistImage{
			URL:         r.URL,
			License:     r.License,
			Attribution: r.Attribution,
			SourcePage:  r.SourcePage,
		})
		if err != nil {
			return err
		}
		return nil
	}
	return nil
}

// MatchStreamingLinks runs the streaming-match pass over a release,
// outside the recording transaction, and writes scored hits respecting
// the manual-override rule: a row already marked manual is never
// overwritten by the pipeline.
func (imp *Importer) MatchStreamingLinks(ctx context.Context, releaseID string) error {
	release, err := imp.store.GetRelease(ctx, releaseID)
	if err != nil {
		return err
	}
	if release == nil {
		return fmt.Errorf("no release with id %q", releaseID)
	}

	for _, m := range imp.matchStreamingLinks(ctx, release) {
		link := &model.ReleaseStreamingLink{
			ReleaseID:   releaseID,
			Service:     m.service,
			ServiceID:   m.serviceID,
			ServiceURL:  m.serviceURL,
			MatchMethod: model.MatchMethodFuzzySearch,
			MatchedAt:   stampTime(),
		}
		if err := imp.store.UpsertReleaseStreamingLink(ctx, link); err != nil {
			var conflict *store.ErrManualOverrideConflict
			if isManualOverrideConflict(err, &conflict) {
				imp.logger.Info("skipping streaming link, manual override present", "release_id", releaseID, "service", m.service)
				continue
			}
			return err
		}
	}
	return nil
}

func isManualOverrideConflict(err error, target **store.ErrManualOverrideConflict) bool {
	conflict, ok := err.(*store.ErrManualOverrideConflict)
	if ok {
		*target = conflict
	}
	return ok
}

// uniqueExternalRecordingIDs extracts recording MBIDs from
// WorkRecordings's result. The adapter reuses EncReleaseRef to carry each
// related recording's id in ExternalReleaseID and title in Title, since a
// work-to-recording relation has the same (id, title) shape as a
// release reference.
func uniqueExternalRecordingIDs(refs []model.EncReleaseRef) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, ref := range refs {
		if ref.ExternalReleaseID == "" || seen[ref.ExternalReleaseID] {
			continue
		}
		seen[ref.ExternalReleaseID] = true
		ids = append(ids, ref.ExternalReleaseID)
	}
	return ids
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositiveYear(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func stampTime() time.Time {
	return time.Now().UTC()
}
