// Package crawlstore persists the harvest: which urls were visited, which
// content hashes were already saved and the per-page metadata the original
// meta.json export is generated from.
package crawlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"time"
	"siteharvest/lib/crawlstore/db"
)

// Schema is applied by the caller when opening the database, usually
// through sqliteutil.OpenDB.
var Schema = db.Schema

type Store struct {
	db *sql.DB
}

func New(database *sql.DB) Store {
	return Store{db: database}
}

type Page struct {
	Url         string
	FileName    string
	Title       string
	Anchor      string
	Language    string
	LastUpdated string
	ContentHash string
	ScrapedAt   time.Time
}

// MarkVisited records the url and reports whether it had been recorded
// before.
func (s Store) MarkVisited(ctx context.Context, url string) (alreadyVisited bool, err error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO visited (url) VALUES (?)`,
		url,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 0, nil
}

// SeenContent records the content hash and reports whether identical
// content was already saved under another url. Keeps duplicates out of
// downstream consumers like vector databases.
func (s Store) SeenContent(ctx context.Context, hash, url string) (duplicate bool, err error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO content_hash (hash, url) VALUES (?, ?)`,
		hash, url,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 0, nil
}

func (s Store) RecordPage(ctx context.Context, page Page) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO page
			(url, file_name, title, anchor, language, last_updated, content_hash, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		page.Url,
		page.FileName,
		page.Title,
		page.Anchor,
		page.Language,
		page.LastUpdated,
		page.ContentHash,
		page.ScrapedAt.Unix(),
	)
	return err
}

func (s Store) Pages(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT url, file_name, title, anchor, language, last_updated, content_hash, scraped_at
			FROM page ORDER BY url`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var page Page
		var scrapedAt int64
		err := rows.Scan(
			&page.Url,
			&page.FileName,
			&page.Title,
			&page.Anchor,
			&page.Language,
			&page.LastUpdated,
			&page.ContentHash,
			&scrapedAt,
		)
		if err != nil {
			return nil, err
		}
		page.ScrapedAt = time.Unix(scrapedAt, 0)
		out = append(out, page)
	}
	return out, rows.Err()
}

type metaEntry struct {
	Title       string `json:"title"`
	Url         string `json:"url"`
	FileName    string `json:"file_name"`
	Anchor      string `json:"anchor,omitempty"`
	Language    string `json:"language,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// ExportMeta writes the page metadata as a json document next to the
// scraped files.
func (s Store) ExportMeta(ctx context.Context, path string) error {
	pages, err := s.Pages(ctx)
	if err != nil {
		return err
	}

	entries := make([]metaEntry, len(pages))
	for i, page := range pages {
		entries[i] = metaEntry{
			Title:       page.Title,
			Url:         page.Url,
			FileName:    page.FileName,
			Anchor:      page.Anchor,
			Language:    page.Language,
			LastUpdated: page.LastUpdated,
		}
	}

	out, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
