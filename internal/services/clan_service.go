package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clanhub/api/internal/metrics"
	"github.com/clanhub/api/internal/models"
	"github.com/clanhub/api/internal/repository"
	"github.com/clanhub/api/internal/validators"
	appErr "github.com/clanhub/api/pkg/errors"
	"github.com/clanhub/api/pkg/logger"
)

// MinSearchLength is the minimum trimmed length of a search query.
const MinSearchLength = 3

type ClanService interface {
	CreateClan(ctx context.Context, input *CreateClanInput) (*models.Clan, error)
	GetClan(ctx context.Context, id uuid.UUID) (*models.Clan, error)
	ListClans(ctx context.Context) ([]models.Clan, error)
	SearchClans(ctx context.Context, query string) ([]models.Clan, error)
	DeleteClan(ctx context.Context, id uuid.UUID) error
}

// CreateClanInput is validated after the name is trimmed. Region is checked
// exactly as sent, so "tr" is rejected even though storage would uppercase it.
type CreateClanInput struct {
	Name   string `json:"name" validate:"required,max=120"`
	Region string `json:"region" validate:"required,region_code"`
}

type clanService struct {
	repo     repository.ClanRepository
	validate *validator.Validate
	metrics  *metrics.Metrics
}

func NewClanService(repo repository.ClanRepository, m *metrics.Metrics) ClanService {
	return &clanService{repo: repo, validate: validators.New(), metrics: m}
}

// Ensure interfaces are satisfied at compile time
var _ ClanService = (*clanService)(nil)

func (s *clanService) CreateClan(ctx context.Context, input *CreateClanInput) (*models.Clan, error) {
	in := CreateClanInput{Name: strings.TrimSpace(input.Name), Region: input.Region}
	if err := s.validate.Struct(in); err != nil {
		s.metrics.ClanOp("create", "invalid")
		return nil, appErr.Wrap(err, appErr.CodeInvalid, validators.Describe(err))
	}

	c, err := s.repo.Create(ctx, in.Name, in.Region)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			s.metrics.ClanOp("create", "conflict")
			logger.L().Info("clan name taken", zap.String("name", in.Name))
			return nil, s.conflict(ctx, in.Name)
		}
		s.metrics.ClanOp("create", "error")
		logger.L().Error("create clan failed", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}

	s.metrics.ClanOp("create", "created")
	logger.L().Info("clan created", zap.String("clan_id", c.ID.String()), zap.String("name", c.Name), zap.String("region", c.Region))
	return c, nil
}

// conflict builds the duplicate-name error, pointing at the holder of the name when it can be found.
func (s *clanService) conflict(ctx context.Context, name string) error {
	e := appErr.New(appErr.CodeConflict, "clan name already exists")
	existing, err := s.repo.FindByExactName(ctx, name)
	if err == nil && existing != nil {
		e.WithMeta("existing_id", existing.ID.String())
	}
	return e
}

func (s *clanService) GetClan(ctx context.Context, id uuid.UUID) (*models.Clan, error) {
	return s.repo.Get(ctx, id)
}

func (s *clanService) ListClans(ctx context.Context) ([]models.Clan, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		s.metrics.ClanOp("list", "error")
		return nil, err
	}
	s.metrics.ClanOp("list", "ok")
	return out, nil
}

func (s *clanService) SearchClans(ctx context.Context, query string) ([]models.Clan, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinSearchLength {
		s.metrics.ClanOp("search", "invalid")
		return nil, appErr.Newf(appErr.CodeInvalid, "name must be at least %d characters", MinSearchLength)
	}
	out, err := s.repo.SearchByNameContains(ctx, q)
	if err != nil {
		s.metrics.ClanOp("search", "error")
		return nil, err
	}
	s.metrics.ClanOp("search", "ok")
	logger.L().Debug("clan search", zap.String("q", q), zap.Int("hits", len(out)))
	return out, nil
}

func (s *clanService) DeleteClan(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		s.metrics.ClanOp("delete", "error")
		return err
	}
	if !ok {
		s.metrics.ClanOp("delete", "not_found")
		return appErr.New(appErr.CodeNotFound, "clan not found")
	}
	s.metrics.ClanOp("delete", "deleted")
	logger.L().Info("clan deleted", zap.String("clan_id", id.String()))
	return nil
}
