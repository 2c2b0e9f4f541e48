// Package rankservice implements the user-facing query-path operations:
// submitting a score and reading score, rank, and top-N, each composed over
// the repository and translated to the service error taxonomy.
package rankservice

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rankvault/leaderboard-service/internal/apierrors"
	"github.com/rankvault/leaderboard-service/internal/domain"
	"github.com/rankvault/leaderboard-service/internal/repository"
)

// nicknameCacheSize bounds the in-process nickname cache shared across all
// tenants. The cache is filled on every score write and read; GetTop consults
// it only after the index store's hash read, for an entry whose nickname came
// back empty. The index store already substitutes "momo" for a missing hash
// entry, so GetTop's nicknames come from the index store.
const nicknameCacheSize = 4096

// Service is the query-path service over Repository.
type Service struct {
	repo      *repository.Repository
	nicknames *lru.Cache[string, string]
}

func New(repo *repository.Repository) *Service {
	cache, _ := lru.New[string, string](nicknameCacheSize)
	return &Service{repo: repo, nicknames: cache}
}

func nicknameCacheKey(appID, openID string) string {
	return appID + ":" + openID
}

// UpdateScore writes a submitted score. Any failure is reported as a
// generic database failure.
func (s *Service) UpdateScore(ctx context.Context, appID, rankKey, openID, nick string, rawScore int64) error {
	if err := s.repo.UpsertScore(ctx, appID, rankKey, openID, nick, rawScore); err != nil {
		return apierrors.DbSomethingWentWrong(err)
	}
	s.nicknames.Add(nicknameCacheKey(appID, openID), nick)
	return nil
}

// GetScore queries the index first; on the absent sentinel it falls back to
// the durable store, opportunistically backfilling the index on a durable
// hit. A durable miss is reported as a database error.
func (s *Service) GetScore(ctx context.Context, appID, openID, rankKey string) (int64, error) {
	indexScore, err := s.repo.GetIndexScore(ctx, appID, rankKey, openID)
	if err != nil {
		return 0, apierrors.DbSomethingWentWrong(err)
	}
	if indexScore != domain.ScoreIndexAbsent {
		return indexScore, nil
	}

	row, err := s.repo.GetDurableScore(ctx, appID, rankKey, openID)
	if err != nil {
		return 0, apierrors.DbSomethingWentWrong(err)
	}

	// Backfill is opportunistic: the durable read has already succeeded
	// regardless of whether this write lands.
	_ = s.repo.UpsertScore(ctx, appID, rankKey, row.OpenID, row.NickName, row.Score)
	s.nicknames.Add(nicknameCacheKey(appID, openID), row.NickName)
	return row.Score, nil
}

// GetRank is a direct index query: 0 means unranked, >=1 is the rank.
func (s *Service) GetRank(ctx context.Context, appID, openID, rankKey string) (int64, error) {
	rank, err := s.repo.GetRank(ctx, appID, rankKey, openID)
	if err != nil {
		return 0, apierrors.DbSomethingWentWrong(err)
	}
	return rank, nil
}

// TopEntry is one row of a get_top response.
type TopEntry struct {
	OpenID   string
	NickName string
	Score    int64
	Ranking  int64
}

// GetTop fetches the top n entries, decoded and ranked 1..len(result) in
// returned order, with nicknames hydrated (absent nickname becomes "momo").
func (s *Service) GetTop(ctx context.Context, appID, rankKey string, n int64) ([]TopEntry, error) {
	entries, err := s.repo.GetTop(ctx, appID, rankKey, n)
	if err != nil {
		return nil, apierrors.DbSomethingWentWrong(err)
	}

	out := make([]TopEntry, len(entries))
	for i, e := range entries {
		nick := e.NickName
		if nick == "" {
			if cached, ok := s.nicknames.Get(nicknameCacheKey(appID, e.OpenID)); ok {
				nick = cached
			} else {
				nick = domain.UnknownNickName
			}
		}
		out[i] = TopEntry{OpenID: e.OpenID, NickName: nick, Score: e.Score, Ranking: e.Ranking}
	}
	return out, nil
}
