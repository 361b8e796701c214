// Package resolve implements the entity resolution policy: given a
// candidate entity discovered from a provider, decide whether it is the
// same row already in the store, or a new row to create.
//
// The policy is uniform across entity kinds and is applied in order:
//  1. external-id lookup
//  2. exact normalized name/title match
//  3. fuzzy candidate search (score >= normalize.AcceptThreshold) plus a
//     secondary signal (birth year for performers, release year for
//     releases; songs have none) to break ties between near-identical
//     candidates
//  4. no match: the caller creates a new row
package resolve

import (
	"context"

	"github.com/dprodger/jazzref/internal/model"
	"github.com/dprodger/jazzref/internal/normalize"
)

// MatchMethod records which step of the policy produced a match.
type MatchMethod string

const (
	MatchByExternalID MatchMethod = "external_id"
	MatchByExactName  MatchMethod = "exact_name"
	MatchByFuzzy      MatchMethod = "fuzzy"
	MatchNone         MatchMethod = "" // caller must create a new row
)

// Result describes the outcome of a resolution attempt.
type Result struct {
	Method     MatchMethod
	Score      int // 100 for external-id/exact-name, else the fuzzy score
	Ambiguous  bool
	Candidates int    // number of fuzzy candidates at or above threshold, when Ambiguous
	MatchedID  string // id of the matched row; set for MatchByFuzzy, empty otherwise (caller already has the row for the other methods)
}

// Candidate is anything the fuzzy step can score: a name/title plus an
// optional secondary signal used to break near-ties.
type Candidate struct {
	ID             string
	Name           string
	SecondaryYear  int // 0 if unknown
	SecondaryMatch bool
}

// SongLookup is the subset of the data access layer the resolver needs to
// reconcile songs. Implemented by the store package.
type SongLookup interface {
	FindSongByExternalWorkID(ctx context.Context, id string) (*model.Song, error)
	FindSongByNormalizedTitle(ctx context.Context, normalizedTitle string) (*model.Song, error)
	FuzzySongCandidates(ctx context.Context, title string) ([]Candidate, error)
}

// PerformerLookup is the subset of the data access layer the resolver
// needs to reconcile performers.
type PerformerLookup interface {
	FindPerformerByExternalArtistID(ctx context.Context, id string) (*model.Performer, error)
	FindPerformerByNormalizedName(ctx context.Context, normalizedName string) (*model.Performer, error)
	FuzzyPerformerCandidates(ctx context.Context, name string, birthYear int) ([]Candidate, error)
}

// ReleaseLookup is the subset of the data access layer the resolver needs
// to reconcile releases within a recording's existing release set.
type ReleaseLookup interface {
	FindReleaseByExternalReleaseID(ctx context.Context, id string) (*model.Release, error)
	FindReleaseByNormalizedTitle(ctx context.Context, recordingID, normalizedTitle string) (*model.Release, error)
	FuzzyReleaseCandidates(ctx context.Context, recordingID, title string, year int) ([]Candidate, error)
}

// Song resolves a candidate work title/external id against existing
// songs using the four-step policy.
func Song(ctx context.Context, lookup SongLookup, externalWorkID, title string) (Result, *model.Song, error) {
	if externalWorkID != "" {
		if s, err := lookup.FindSongByExternalWorkID(ctx, externalWorkID); err != nil {
			return Result{}, nil, err
		} else if s != nil {
			return Result{Method: MatchByExternalID, Score: 100}, s, nil
		}
	}

	normalized := normalize.Title(title)
	if s, err := lookup.FindSongByNormalizedTitle(ctx, normalized); err != nil {
		return Result{}, nil, err
	} else if s != nil {
		return Result{Method: MatchByExactName, Score: 100}, s, nil
	}

	candidates, err := lookup.FuzzySongCandidates(ctx, title)
	if err != nil {
		return Result{}, nil, err
	}
	return resolveFuzzy(candidates, title, 0)
}

// Performer resolves a candidate performer against existing performers.
func Performer(ctx context.Context, lookup PerformerLookup, externalArtistID, name string, birthYear int) (Result, *model.Performer, error) {
	if externalArtistID != "" {
		if p, err := lookup.FindPerformerByExternalArtistID(ctx, externalArtistID); err != nil {
			return Result{}, nil, err
		} else if p != nil {
			return Result{Method: MatchByExternalID, Score: 100}, p, nil
		}
	}

	normalized := normalize.Title(name)
	if p, err := lookup.FindPerformerByNormalizedName(ctx, normalized); err != nil {
		return Result{}, nil, err
	} else if p != nil {
		return Result{Method: MatchByExactName, Score: 100}, p, nil
	}

	candidates, err := lookup.FuzzyPerformerCandidates(ctx, name, birthYear)
	if err != nil {
		return Result{}, nil, err
	}
	result, _, err := resolveFuzzyGeneric(candidates, name)
	return result, nil, err
}

// Release resolves a candidate release against the releases already
// linked to a recording.
func Release(ctx context.Context, lookup ReleaseLookup, recordingID, externalReleaseID, title string, year int) (Result, *model.Release, error) {
	if externalReleaseID != "" {
		if r, err := lookup.FindReleaseByExternalReleaseID(ctx, externalReleaseID); err != nil {
			return Result{}, nil, err
		} else if r != nil {
			return Result{Method: MatchByExternalID, Score: 100}, r, nil
		}
	}

	normalized := normalize.Title(title)
	if r, err := lookup.FindReleaseByNormalizedTitle(ctx, recordingID, normalized); err != nil {
		return Result{}, nil, err
	} else if r != nil {
		return Result{Method: MatchByExactName, Score: 100}, r, nil
	}

	candidates, err := lookup.FuzzyReleaseCandidates(ctx, recordingID, title, year)
	if err != nil {
		return Result{}, nil, err
	}
	result, _, err := resolveFuzzy(candidates, title, year)
	return result, nil, err
}

// resolveFuzzy scores candidates against name and applies the secondary
// signal tiebreaker. Song and Release share this shape (a secondary year
// signal); Performer uses resolveFuzzyGeneric since its secondary signal
// (birth year) was already folded into the FuzzyPerformerCandidates call.
func resolveFuzzy(candidates []Candidate, name string, _ int) (Result, *model.Song, error) {
	best, bestScore, tieCount := pickBest(candidates, name)
	if best == nil {
		return Result{Method: MatchNone}, nil, nil
	}
	if tieCount > 1 {
		return Result{Method: MatchByFuzzy, Score: bestScore, Ambiguous: true, Candidates: tieCount}, nil, nil
	}
	return Result{Method: MatchByFuzzy, Score: bestScore, MatchedID: best.ID}, nil, nil
}

func resolveFuzzyGeneric(candidates []Candidate, name string) (Result, *Candidate, error) {
	best, bestScore, tieCount := pickBest(candidates, name)
	if best == nil {
		return Result{Method: MatchNone}, nil, nil
	}
	if tieCount > 1 {
		return Result{Method: MatchByFuzzy, Score: bestScore, Ambiguous: true, Candidates: tieCount}, nil, nil
	}
	return Result{Method: MatchByFuzzy, Score: bestScore, MatchedID: best.ID}, best, nil
}

// pickBest scores every candidate against name and returns the
// highest-scoring one at or above normalize.AcceptThreshold, along with
// how many candidates tied for that top score. Candidates whose
// SecondaryMatch is true are preferred when scores tie, since the
// secondary signal (birth year, release year) disambiguates near-
// identical names.
func pickBest(candidates []Candidate, name string) (*Candidate, int, int) {
	var best *Candidate
	bestScore := -1
	tieCount := 0

	for i := range candidates {
		c := &candidates[i]
		score := normalize.Score(name, c.Name)
		if score < normalize.AcceptThreshold {
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore, tieCount = c, score, 1
		case score == bestScore:
			tieCount++
			if c.SecondaryMatch && !best.SecondaryMatch {
				best = c
			}
		}
	}

	if best != nil && tieCount > 1 {
		// If exactly one tied candidate carries the secondary signal, the
		// tie is resolved and no longer ambiguous.
		secondaryMatches := 0
		for i := range candidates {
			c := &candidates[i]
			if normalize.Score(name, c.Name) == bestScore && c.SecondaryMatch {
				secondaryMatches++
			}
		}
		if secondaryMatches == 1 {
			tieCount = 1
		}
	}

	return best, bestScore, tieCount
}
