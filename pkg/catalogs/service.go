// Package catalogs implements spec.md §4.B's catalogs.ensure contract:
// lazily creating the Catalog tree the scanner discovers, walking
// missing ancestors bottom-up the way shisho's pkg/books ensures parent
// folders exist before inserting a child row.
package catalogs

import (
	"context"
	"database/sql"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Service is the catalogs query layer.
type Service struct {
	db *bun.DB
}

// NewService builds a catalogs Service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Ensure returns the Catalog row for path/catType, creating it (and any
// missing ancestor directories) if necessary. path is relative to the
// library root and must not contain "." or ".." segments.
func (svc *Service) Ensure(ctx context.Context, cleanPath, catType string) (*models.Catalog, error) {
	cleanPath = path.Clean(strings.ReplaceAll(cleanPath, "\\", "/"))
	if cleanPath == "." {
		cleanPath = ""
	}
	if err := validatePath(cleanPath); err != nil {
		return nil, err
	}

	return svc.ensure(ctx, cleanPath, catType)
}

func (svc *Service) ensure(ctx context.Context, cleanPath, catType string) (*models.Catalog, error) {
	existing := &models.Catalog{}
	err := svc.db.NewSelect().Model(existing).Where("cat.path = ?", cleanPath).Scan(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	var parentID *int
	if cleanPath != "" {
		parentPath := path.Dir(cleanPath)
		if parentPath == "." {
			parentPath = ""
		}
		parent, err := svc.ensure(ctx, parentPath, models.CatTypeNormal)
		if err != nil {
			return nil, err
		}
		parentID = &parent.ID
	}

	cat := &models.Catalog{
		ParentID: parentID,
		Path:     cleanPath,
		CatName:  catName(cleanPath),
		CatType:  catType,
		CatMtime: time.Now(),
	}
	_, err = svc.db.NewInsert().Model(cat).
		On("CONFLICT (path) DO NOTHING").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if cat.ID == 0 {
		// Another concurrent scan path created it first; fetch it.
		return svc.ensure(ctx, cleanPath, catType)
	}
	return cat, nil
}

// Retrieve loads a Catalog by id.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.Catalog, error) {
	cat := &models.Catalog{}
	err := svc.db.NewSelect().Model(cat).Where("cat.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Catalog")
		}
		return nil, errors.WithStack(err)
	}
	return cat, nil
}

// Children returns the direct children of parentID, ordered by name.
// A nil parentID returns the root-level catalogs.
func (svc *Service) Children(ctx context.Context, parentID *int) ([]*models.Catalog, error) {
	var cats []*models.Catalog
	q := svc.db.NewSelect().Model(&cats).OrderExpr("cat.cat_name ASC")
	if parentID == nil {
		q = q.Where("cat.parent_id IS NULL")
	} else {
		q = q.Where("cat.parent_id = ?", *parentID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return cats, nil
}

// Count returns the total number of catalogs, backing the allcatalogs
// counter.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.Catalog)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

func catName(cleanPath string) string {
	if cleanPath == "" {
		return "/"
	}
	return path.Base(cleanPath)
}

// validatePath rejects traversal segments per spec.md §3 invariant 5.
func validatePath(p string) error {
	if p == "" {
		return nil
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return errors.Errorf("catalogs: invalid path segment in %q", p)
		}
	}
	return nil
}
