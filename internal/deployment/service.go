// Package deployment lists model deployments for session binding.
package deployment

import (
	"context"
	"sync"

	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/pkg/types"
)

// Lister fetches one page of deployments from the listing collaborator.
type Lister interface {
	List(ctx context.Context, page, limit int, search string) (*types.DeploymentPage, error)
}

// Service wraps the listing collaborator with degrade-to-empty semantics:
// a fetch failure yields the last successfully fetched list (or an empty
// one), never a propagated error. Selection pickers always render.
type Service struct {
	lister Lister

	mu       sync.Mutex
	lastGood []types.Deployment
}

// NewService creates a deployment service.
func NewService(lister Lister) *Service {
	return &Service{lister: lister}
}

// List fetches a page of deployments. On failure it degrades to the cached
// last-good list and logs the error.
func (s *Service) List(ctx context.Context, page, limit int, search string) []types.Deployment {
	result, err := s.lister.List(ctx, page, limit, search)
	if err != nil {
		logging.Warn().Err(err).Msg("deployment listing failed, serving cached list")

		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]types.Deployment(nil), s.lastGood...)
	}

	s.mu.Lock()
	s.lastGood = append([]types.Deployment(nil), result.Deployments...)
	s.mu.Unlock()

	return result.Deployments
}

// Find returns the deployment with the given id, paging through the whole
// listing. A fetch failure falls back to the cached last-good list; an
// unknown id yields nil.
func (s *Service) Find(ctx context.Context, id string) *types.Deployment {
	const limit = 100

	for page := 1; ; page++ {
		result, err := s.lister.List(ctx, page, limit, "")
		if err != nil {
			logging.Warn().Err(err).Msg("deployment listing failed, searching cached list")

			s.mu.Lock()
			defer s.mu.Unlock()
			for _, d := range s.lastGood {
				if d.ID == id {
					found := d
					return &found
				}
			}
			return nil
		}

		if page == 1 {
			s.mu.Lock()
			s.lastGood = append([]types.Deployment(nil), result.Deployments...)
			s.mu.Unlock()
		}

		for _, d := range result.Deployments {
			if d.ID == id {
				found := d
				return &found
			}
		}

		if page >= result.TotalPages {
			return nil
		}
	}
}
