package db

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const blockColumns = `cidr, availability, region, owner, config_tag, version, updated_at`

const lookupBlock = `SELECT ` + blockColumns + `
FROM address_blocks
WHERE cidr = $1`

const scanBlocks = `SELECT ` + blockColumns + `
FROM address_blocks
WHERE ($1::text = '' OR availability = $1)
  AND ($2::text = '' OR region = $2)
  AND ($3::int = 0 OR prefix_length = $3)`

const upsertBlock = `INSERT INTO address_blocks (cidr, prefix_length, availability, region, owner, config_tag, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
ON CONFLICT (cidr) DO UPDATE SET
    availability = EXCLUDED.availability,
    region       = EXCLUDED.region,
    owner        = EXCLUDED.owner,
    config_tag   = EXCLUDED.config_tag,
    updated_at   = EXCLUDED.updated_at,
    version      = address_blocks.version + 1
RETURNING ` + blockColumns

const insertBlockIfAbsent = `INSERT INTO address_blocks (cidr, prefix_length, availability, region, owner, config_tag, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
ON CONFLICT (cidr) DO NOTHING
RETURNING ` + blockColumns

const updateBlockIfVersion = `UPDATE address_blocks SET
    availability = $3,
    region       = $4,
    owner        = $5,
    config_tag   = $6,
    updated_at   = COALESCE($7, now()),
    version      = version + 1
WHERE cidr = $1 AND prefix_length = $2 AND version = $8
RETURNING ` + blockColumns

const deleteBlock = `DELETE FROM address_blocks WHERE cidr = $1`

const deleteBlockIfVersion = `DELETE FROM address_blocks WHERE cidr = $1 AND version = $2`

// BlockRepository is the Postgres ledger. Conditional writes compare the
// version column inside a single statement.
type BlockRepository struct {
	db DBTX
}

func NewBlockRepository(db DBTX) *BlockRepository {
	return &BlockRepository{db: db}
}

func (r *BlockRepository) LookupExact(ctx context.Context, cidr netip.Prefix) (domain.AddressBlock, error) {
	block, err := scanBlock(r.db.QueryRow(ctx, lookupBlock, cidr.Masked()))
	if err != nil {
		if isNoRows(err) {
			return domain.AddressBlock{}, fmt.Errorf("%w: %s", domain.ErrNotFound, cidr)
		}
		return domain.AddressBlock{}, err
	}
	return block, nil
}

func (r *BlockRepository) ScanByPredicate(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	rows, err := r.db.Query(ctx, scanBlocks, string(query.Availability), query.Region, query.PrefixLength)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AddressBlock
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, rows.Err()
}

func (r *BlockRepository) Upsert(ctx context.Context, block domain.AddressBlock) (domain.AddressBlock, error) {
	return scanBlock(r.db.QueryRow(ctx, upsertBlock, writeArgs(block)...))
}

func (r *BlockRepository) Delete(ctx context.Context, cidr netip.Prefix) error {
	_, err := r.db.Exec(ctx, deleteBlock, cidr.Masked())
	return err
}

func (r *BlockRepository) UpsertIfVersion(ctx context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	var row pgx.Row
	if expected == 0 {
		row = r.db.QueryRow(ctx, insertBlockIfAbsent, writeArgs(block)...)
	} else {
		row = r.db.QueryRow(ctx, updateBlockIfVersion, append(writeArgs(block), expected)...)
	}

	stored, err := scanBlock(row)
	if err != nil {
		if isNoRows(err) {
			return domain.AddressBlock{}, fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, block.CIDR, expected)
		}
		return domain.AddressBlock{}, err
	}
	return stored, nil
}

func (r *BlockRepository) DeleteIfVersion(ctx context.Context, cidr netip.Prefix, expected int64) error {
	if expected == 0 {
		_, err := r.LookupExact(ctx, cidr)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s exists", domain.ErrRaceLost, cidr)
		case errors.Is(err, domain.ErrNotFound):
			return nil
		default:
			return err
		}
	}

	tag, err := r.db.Exec(ctx, deleteBlockIfVersion, cidr.Masked(), expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s changed since version %d", domain.ErrRaceLost, cidr, expected)
	}
	return nil
}

func writeArgs(block domain.AddressBlock) []any {
	return []any{
		block.CIDR.Masked(),
		block.PrefixLength(),
		string(block.Availability),
		nullText(block.Region),
		nullText(block.Owner),
		nullText(block.ConfigTag),
		pgtype.Timestamptz{Time: block.UpdatedAt, Valid: !block.UpdatedAt.IsZero()},
	}
}

func scanBlock(row pgx.Row) (domain.AddressBlock, error) {
	var (
		cidr         netip.Prefix
		availability string
		region       pgtype.Text
		owner        pgtype.Text
		configTag    pgtype.Text
		version      int64
		updatedAt    pgtype.Timestamptz
	)
	if err := row.Scan(&cidr, &availability, &region, &owner, &configTag, &version, &updatedAt); err != nil {
		return domain.AddressBlock{}, err
	}

	return domain.AddressBlock{
		CIDR:         cidr,
		Availability: domain.Availability(availability),
		Region:       region.String,
		Owner:        owner.String,
		ConfigTag:    configTag.String,
		Version:      version,
		UpdatedAt:    updatedAt.Time,
	}, nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
