package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clanhub/api/internal/models"
	appErr "github.com/clanhub/api/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClanRepository interface {
	// Create normalizes name and region, stamps id and creation time and
	// inserts the clan. A taken name yields a conflict error and no write.
	Create(ctx context.Context, name, region string) (*models.Clan, error)
	// InsertIfAbsent stores clan as given unless its name is taken.
	InsertIfAbsent(ctx context.Context, clan *models.Clan) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Clan, error)
	List(ctx context.Context) ([]models.Clan, error)
	SearchByNameContains(ctx context.Context, q string) ([]models.Clan, error)
	// DeleteByID reports false, not an error, when no clan had this id.
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	// FindByExactName returns nil, nil when no clan has exactly this name.
	FindByExactName(ctx context.Context, name string) (*models.Clan, error)
}

type clanRepository struct {
	BaseRepository[models.Clan]
	db *gorm.DB
}

func NewClanRepository(db *gorm.DB) ClanRepository {
	return &clanRepository{BaseRepository: NewBaseRepository[models.Clan](db), db: db}
}

var _ ClanRepository = (*clanRepository)(nil)

func (r *clanRepository) Create(ctx context.Context, name, region string) (*models.Clan, error) {
	c := &models.Clan{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Region:    strings.ToUpper(strings.TrimSpace(region)),
		CreatedAt: time.Now().UTC(),
	}
	inserted, err := r.InsertIfAbsent(ctx, c)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, appErr.New(appErr.CodeConflict, "clan name already exists")
	}
	return c, nil
}

func (r *clanRepository) InsertIfAbsent(ctx context.Context, clan *models.Clan) (bool, error) {
	return r.BaseRepository.InsertIfAbsent(ctx, clan, "name")
}

func (r *clanRepository) Get(ctx context.Context, id uuid.UUID) (*models.Clan, error) {
	var c models.Clan
	if err := r.GetByID(ctx, id, &c); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "clan not found")
		}
		return nil, err
	}
	return &c, nil
}

func (r *clanRepository) List(ctx context.Context) ([]models.Clan, error) {
	out := []models.Clan{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list clans failed")
	}
	return out, nil
}

func (r *clanRepository) SearchByNameContains(ctx context.Context, q string) ([]models.Clan, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	out := []models.Clan{}
	if err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "search clans failed")
	}
	return out, nil
}

func (r *clanRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.BaseRepository.DeleteByID(ctx, id)
}

func (r *clanRepository) FindByExactName(ctx context.Context, name string) (*models.Clan, error) {
	var c models.Clan
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find clan by name failed")
	}
	return &c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
