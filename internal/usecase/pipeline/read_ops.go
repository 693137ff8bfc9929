package pipeline

import (
	"context"

	"agentdrop/internal/errs"
	"agentdrop/internal/ports"
)

type ProspectListItem struct {
	ProspectID     uint64
	Username       string
	Score          *int
	Tier           *string
	OutreachStatus string
	PayoutStatus   string
	AddressValid   bool
	PRURL          *string
	UpdatedAt      string
}

type ProspectDetail struct {
	Record ports.ProspectRecord
	Repos  []ports.MatchedRepoRecord
}

type ListProspectsInput struct {
	Tier           string
	OutreachStatus string
	PayoutStatus   string
	Limit          int
	Offset         int
}

// ListProspects serves the console and API read paths.
func (s *Service) ListProspects(ctx context.Context, input ListProspectsInput) ([]ProspectListItem, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	records, err := s.repo.ListProspects(ctx, ports.ProspectFilter{
		Tier:           input.Tier,
		OutreachStatus: input.OutreachStatus,
		PayoutStatus:   input.PayoutStatus,
		Limit:          input.Limit,
		Offset:         input.Offset,
	})
	if err != nil {
		return nil, errs.Wrap(err, "list prospects")
	}

	items := make([]ProspectListItem, 0, len(records))
	for _, record := range records {
		items = append(items, ProspectListItem{
			ProspectID:     record.ProspectID,
			Username:       record.Username,
			Score:          record.Score,
			Tier:           record.Tier,
			OutreachStatus: record.OutreachStatus,
			PayoutStatus:   record.PayoutStatus,
			AddressValid:   record.AddressValid,
			PRURL:          record.PRURL,
			UpdatedAt:      record.UpdatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return items, nil
}

// GetProspectDetail returns one prospect with its matched-repo evidence.
func (s *Service) GetProspectDetail(ctx context.Context, username string) (ProspectDetail, error) {
	if err := s.guard(ctx); err != nil {
		return ProspectDetail{}, err
	}

	record, err := s.repo.GetProspectByUsername(ctx, username)
	if err != nil {
		return ProspectDetail{}, err
	}

	repos, err := s.repo.ListMatchedRepos(ctx, record.ProspectID)
	if err != nil {
		return ProspectDetail{}, errs.Wrapf(err, "list repos for %s", username)
	}

	return ProspectDetail{Record: record, Repos: repos}, nil
}
