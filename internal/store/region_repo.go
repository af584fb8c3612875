package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/number-regions/internal/detection"
	"github.com/ironsheep/number-regions/internal/extractor"
)

var ErrNotFound = sql.ErrNoRows

type RegionRepo struct{ DB *sql.DB }

func NewRegionRepo(db *sql.DB) *RegionRepo { return &RegionRepo{DB: db} }

// StoredRegion is one persisted region row.
type StoredRegion struct {
	ID          int64
	ImageID     int64
	RegionIndex int
	Box         detection.Box
	Confidence  float64
	Text        string
	Source      string
	PNG         []byte
	CreatedAt   time.Time
}

// Migrate creates the tables when they do not exist.
func (r *RegionRepo) Migrate(ctx context.Context) error {
	const q = `
create table if not exists images (
    id                  bigserial primary key,
    path                text not null unique,
    created_at          timestamptz not null default now(),
    processed           boolean not null default false,
    total_regions_found integer not null default 0
);
create table if not exists number_regions (
    id           bigserial primary key,
    image_id     bigint not null references images(id) on delete cascade,
    region_index integer not null,
    x            integer not null,
    y            integer not null,
    width        integer not null,
    height       integer not null,
    confidence   double precision not null,
    text         text not null default '',
    source       text not null,
    png          bytea not null,
    created_at   timestamptz not null default now(),
    unique (image_id, region_index)
)`
	if _, err := r.DB.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

// CreateImage registers path and returns its id. Registering a path twice
// returns the existing id.
func (r *RegionRepo) CreateImage(ctx context.Context, path string) (int64, error) {
	const q = `
insert into images (path) values ($1)
on conflict (path) do update set path = excluded.path
returning id`
	var id int64
	if err := r.DB.QueryRowContext(ctx, q, path).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "create image %s", path)
	}
	return id, nil
}

// SaveRegions replaces the regions stored for imageID and marks the image
// processed, in one transaction.
func (r *RegionRepo) SaveRegions(ctx context.Context, imageID int64, regions []extractor.OutputRegion) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `delete from number_regions where image_id = $1`, imageID); err != nil {
		return errors.Wrap(err, "delete old regions")
	}

	const ins = `
insert into number_regions (image_id, region_index, x, y, width, height, confidence, text, source, png)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, reg := range regions {
		if _, err = tx.ExecContext(ctx, ins, imageID, reg.Index,
			reg.Box.X, reg.Box.Y, reg.Box.Width, reg.Box.Height,
			reg.Confidence, reg.Text, reg.Source, reg.PNG); err != nil {
			return errors.Wrapf(err, "insert region %d", reg.Index)
		}
	}

	res, err := tx.ExecContext(ctx,
		`update images set processed = true, total_regions_found = $2 where id = $1`,
		imageID, len(regions))
	if err != nil {
		return errors.Wrap(err, "update image")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update image")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "image %d", imageID)
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// ListRegions returns the regions of imageID ordered by index.
func (r *RegionRepo) ListRegions(ctx context.Context, imageID int64) ([]StoredRegion, error) {
	const q = `
select id, image_id, region_index, x, y, width, height, confidence, text, source, png, created_at
from number_regions
where image_id = $1
order by region_index`
	rows, err := r.DB.QueryContext(ctx, q, imageID)
	if err != nil {
		return nil, errors.Wrap(err, "list regions")
	}
	defer rows.Close()

	var out []StoredRegion
	for rows.Next() {
		var s StoredRegion
		if err := rows.Scan(&s.ID, &s.ImageID, &s.RegionIndex,
			&s.Box.X, &s.Box.Y, &s.Box.Width, &s.Box.Height,
			&s.Confidence, &s.Text, &s.Source, &s.PNG, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan region")
		}
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "list regions")
}

// ImageStatus reports whether imageID has been processed and how many
// regions were stored for it.
func (r *RegionRepo) ImageStatus(ctx context.Context, imageID int64) (processed bool, total int, err error) {
	const q = `select processed, total_regions_found from images where id = $1`
	if err := r.DB.QueryRowContext(ctx, q, imageID).Scan(&processed, &total); err != nil {
		return false, 0, errors.Wrapf(err, "image %d", imageID)
	}
	return processed, total, nil
}
