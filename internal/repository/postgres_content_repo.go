package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/sitecms/internal/model"
)

// siteContentRow はsite_contentテーブルの1行。各ブロックはJSONBで保持する。
type siteContentRow struct {
	ID             int            `db:"id"`
	CompanyName    string         `db:"company_name"`
	HomeContent    []byte         `db:"home_content"`
	AboutContent   []byte         `db:"about_content"`
	ContactContent []byte         `db:"contact_content"`
	UpdatedBy      sql.NullString `db:"updated_by"`
	Version        int            `db:"version"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	EditorName     sql.NullString `db:"editor_name"`
	EditorEmail    sql.NullString `db:"editor_email"`
}

// toModel は行をドメインモデルに変換する。
func (row *siteContentRow) toModel() (*model.SiteContent, error) {
	c := &model.SiteContent{
		ID:          row.ID,
		CompanyName: row.CompanyName,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if err := unmarshalBlock(row.HomeContent, &c.HomeContent); err != nil {
		return nil, fmt.Errorf("home_content: %w", err)
	}
	if err := unmarshalBlock(row.AboutContent, &c.AboutContent); err != nil {
		return nil, fmt.Errorf("about_content: %w", err)
	}
	if err := unmarshalBlock(row.ContactContent, &c.ContactContent); err != nil {
		return nil, fmt.Errorf("contact_content: %w", err)
	}
	if row.UpdatedBy.Valid {
		id := row.UpdatedBy.String
		c.UpdatedByID = &id
		// 更新者が削除済みの場合はON DELETE SET NULLでupdated_byも消えるため、
		// JOIN結果が取れたときだけ表示用情報を埋める
		if row.EditorEmail.Valid {
			c.UpdatedBy = &model.Editor{ID: id, Name: row.EditorName.String, Email: row.EditorEmail.String}
		}
	}
	return c, nil
}

func unmarshalBlock(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// PostgresContentRepo はPostgreSQLを使用したサイトコンテンツリポジトリ。
type PostgresContentRepo struct {
	db *sqlx.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sqlx.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

// GetOrCreate はサイトコンテンツを取得する。存在しない場合はdefaultsで作成する。
// 同時に初回アクセスが来てもON CONFLICTで行は1件だけになる。
func (r *PostgresContentRepo) GetOrCreate(ctx context.Context, defaults model.SiteContent) (*model.SiteContent, error) {
	content, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	if content != nil {
		return content, nil
	}

	if err := insertDefaults(ctx, r.db, defaults); err != nil {
		return nil, err
	}

	content, err = r.get(ctx)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.New("site content missing after insert")
	}
	return content, nil
}

// Update はサイトコンテンツを行ロックした上でmutateを適用して保存する。
func (r *PostgresContentRepo) Update(ctx context.Context, defaults model.SiteContent, mutate func(c *model.SiteContent) error) (*model.SiteContent, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertDefaults(ctx, tx, defaults); err != nil {
		return nil, err
	}

	var row siteContentRow
	err = tx.GetContext(ctx, &row,
		`SELECT id, company_name, home_content, about_content, contact_content,
		        updated_by, version, created_at, updated_at
		 FROM site_content
		 WHERE id = $1
		 FOR UPDATE`,
		model.SiteContentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock site content: %w", err)
	}

	content, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("failed to decode site content: %w", err)
	}

	if err := mutate(content); err != nil {
		return nil, err
	}

	home, about, contact, err := marshalBlocks(content)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE site_content
		 SET company_name = $2, home_content = $3, about_content = $4, contact_content = $5,
		     updated_by = $6, version = version + 1, updated_at = now()
		 WHERE id = $1`,
		model.SiteContentID, content.CompanyName, home, about, contact, content.UpdatedByID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update site content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit site content: %w", err)
	}

	updated, err := r.get(ctx)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errors.New("site content missing after update")
	}
	return updated, nil
}

// get は更新者情報をJOINしてサイトコンテンツを取得する。存在しない場合はnilを返す。
func (r *PostgresContentRepo) get(ctx context.Context) (*model.SiteContent, error) {
	var row siteContentRow
	err := r.db.GetContext(ctx, &row,
		`SELECT c.id, c.company_name, c.home_content, c.about_content, c.contact_content,
		        c.updated_by, c.version, c.created_at, c.updated_at,
		        u.name AS editor_name, u.email AS editor_email
		 FROM site_content c
		 LEFT JOIN users u ON u.id = c.updated_by
		 WHERE c.id = $1`,
		model.SiteContentID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site content: %w", err)
	}

	content, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("failed to decode site content: %w", err)
	}
	return content, nil
}

// insertDefaults は行が存在しない場合のみデフォルトのサイトコンテンツを作成する。
func insertDefaults(ctx context.Context, exec sqlx.ExecerContext, defaults model.SiteContent) error {
	home, about, contact, err := marshalBlocks(&defaults)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx,
		`INSERT INTO site_content (id, company_name, home_content, about_content, contact_content, version)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (id) DO NOTHING`,
		model.SiteContentID, defaults.CompanyName, home, about, contact,
	)
	if err != nil {
		return fmt.Errorf("failed to insert default site content: %w", err)
	}
	return nil
}

// marshalBlocks は各ブロックをJSONB用の文字列にエンコードする。
// lib/pqは[]byteをbyteaとして送るため文字列で渡す。
func marshalBlocks(c *model.SiteContent) (home, about, contact string, err error) {
	blocks := []struct {
		name string
		v    any
		dst  *string
	}{
		{"home_content", c.HomeContent, &home},
		{"about_content", c.AboutContent, &about},
		{"contact_content", c.ContactContent, &contact},
	}
	for _, b := range blocks {
		data, err := json.Marshal(b.v)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to encode %s: %w", b.name, err)
		}
		*b.dst = string(data)
	}
	return home, about, contact, nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
