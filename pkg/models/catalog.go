package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Catalog types, per spec.md §3. Normal is a plain directory, Zip is a
// ZIP archive containing books, Inpx/Inp are INPX index containers.
const (
	CatTypeNormal = "normal"
	CatTypeZip    = "zip"
	CatTypeInpx   = "inpx"
	CatTypeInp    = "inp"
)

// Catalog is a directory or archive node in the library tree. The
// scanner creates one lazily the first time it discovers a new path;
// catalogs are never deleted short of a full database reset.
type Catalog struct {
	bun.BaseModel `bun:"table:catalogs,alias:cat"`

	ID       int       `bun:",pk,autoincrement" json:"id"`
	ParentID *int      `bun:",nullzero" json:"parent_id,omitempty"`
	Parent   *Catalog  `bun:"rel:belongs-to,join:parent_id=id" json:"-"`
	Path     string    `bun:",unique,notnull" json:"path"`
	CatName  string    `bun:",notnull" json:"cat_name"`
	CatType  string    `bun:",notnull" json:"cat_type"`
	CatSize  int64     `bun:",nullzero" json:"cat_size"`
	CatMtime time.Time `json:"cat_mtime"`
}
