package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/model"
)

// SQLStore 基于 database/sql 的实现，支持 postgres 与 sqlite
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore 打开数据库并初始化表结构
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == "sqlite" {
		// sqlite 只允许单写者，:memory: 数据库也依赖单连接
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rated_items (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			analysis_type TEXT NOT NULL,
			source_id TEXT,
			scores TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rated_items_store ON rated_items (store_id, analysis_type)`,
		`CREATE TABLE IF NOT EXISTS scorecards (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			analysis_type TEXT NOT NULL,
			overall DOUBLE PRECISION NOT NULL,
			weights TEXT NOT NULL,
			item_count INTEGER NOT NULL,
			diagnostics TEXT,
			generated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scorecards_store ON scorecards (store_id, generated_at)`,
		`CREATE TABLE IF NOT EXISTS scorecard_themes (
			scorecard_id TEXT NOT NULL REFERENCES scorecards(id),
			theme TEXT NOT NULL,
			score DOUBLE PRECISION,
			weight DOUBLE PRECISION NOT NULL,
			effective_weight DOUBLE PRECISION NOT NULL,
			observations INTEGER NOT NULL,
			samples TEXT,
			PRIMARY KEY (scorecard_id, theme)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			analysis_type TEXT NOT NULL,
			theme TEXT NOT NULL,
			observed DOUBLE PRECISION NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			comparison TEXT NOT NULL,
			severity TEXT NOT NULL,
			scorecard_id TEXT,
			description TEXT,
			created_at BIGINT NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_at BIGINT
		)`,
		// 同一门店、分析类型、主题、级别最多一条未解除告警。
		// 两类分析都有 cleanliness，旧索引不区分类型，需要替换
		`DROP INDEX IF EXISTS idx_alerts_open`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_type ON alerts (store_id, analysis_type, theme, severity) WHERE resolved = FALSE`,
		`CREATE TABLE IF NOT EXISTS theme_weights (
			analysis_type TEXT PRIMARY KEY,
			weights TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}
	return nil
}

// rebind 将 ? 占位符转换为 postgres 的 $n
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) SaveItems(ctx context.Context, items []model.RatedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.rebind(`INSERT INTO rated_items (id, store_id, analysis_type, source_id, scores, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	for _, it := range items {
		scores, err := json.Marshal(it.Scores)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, it.ID, it.StoreID, string(it.AnalysisType), it.SourceID, string(scores), it.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert rated item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListItems(ctx context.Context, storeID string, analysisType model.AnalysisType) ([]model.RatedItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, store_id, analysis_type, source_id, scores, created_at
		FROM rated_items
		WHERE store_id = ? AND analysis_type = ?
		ORDER BY created_at, id`), storeID, string(analysisType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.RatedItem
	for rows.Next() {
		var (
			it        model.RatedItem
			typ       string
			sourceID  sql.NullString
			scores    string
			createdAt int64
		)
		if err := rows.Scan(&it.ID, &it.StoreID, &typ, &sourceID, &scores, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &it.Scores); err != nil {
			return nil, fmt.Errorf("decode scores of item %s: %w", it.ID, err)
		}
		it.AnalysisType = model.AnalysisType(typ)
		it.SourceID = sourceID.String
		it.CreatedAt = time.Unix(0, createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLStore) ListStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT store_id FROM rated_items ORDER BY store_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) SaveScorecard(ctx context.Context, sc *model.Scorecard) error {
	weights, err := json.Marshal(sc.Weights)
	if err != nil {
		return err
	}
	diag, err := json.Marshal(sc.Diagnostics)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO scorecards (id, store_id, analysis_type, overall, weights, item_count, diagnostics, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		sc.ID, sc.StoreID, string(sc.AnalysisType), sc.Overall, string(weights), sc.ItemCount, string(diag), sc.GeneratedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert scorecard: %w", err)
	}

	themeQuery := s.rebind(`
		INSERT INTO scorecard_themes (scorecard_id, theme, score, weight, effective_weight, observations, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, ts := range sc.Themes {
		var score sql.NullFloat64
		if ts.Score != nil {
			score = sql.NullFloat64{Float64: *ts.Score, Valid: true}
		}
		samples, err := json.Marshal(ts.Samples)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, themeQuery, sc.ID, string(ts.Theme), score, ts.Weight, ts.EffectiveWeight, ts.Observations, string(samples)); err != nil {
			return fmt.Errorf("failed to insert scorecard theme: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListScorecards(ctx context.Context, storeID string, analysisType model.AnalysisType, limit int) ([]*model.Scorecard, error) {
	query := `SELECT id, store_id, analysis_type, overall, weights, item_count, diagnostics, generated_at FROM scorecards WHERE store_id = ?`
	args := []any{storeID}
	if analysisType != "" {
		query += ` AND analysis_type = ?`
		args = append(args, string(analysisType))
	}
	query += ` ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	var list []*model.Scorecard
	for rows.Next() {
		var (
			sc          model.Scorecard
			typ         string
			weights     string
			diag        sql.NullString
			generatedAt int64
		)
		if err := rows.Scan(&sc.ID, &sc.StoreID, &typ, &sc.Overall, &weights, &sc.ItemCount, &diag, &generatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if err := json.Unmarshal([]byte(weights), &sc.Weights); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode weights of scorecard %s: %w", sc.ID, err)
		}
		if diag.Valid && diag.String != "" {
			if err := json.Unmarshal([]byte(diag.String), &sc.Diagnostics); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode diagnostics of scorecard %s: %w", sc.ID, err)
			}
		}
		sc.AnalysisType = model.AnalysisType(typ)
		sc.GeneratedAt = time.Unix(0, generatedAt)
		list = append(list, &sc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// sqlite 单连接，必须先释放游标再查询子表
	rows.Close()

	for _, sc := range list {
		themes, err := s.loadThemes(ctx, sc.ID)
		if err != nil {
			return nil, err
		}
		sc.Themes = themes
	}
	return list, nil
}

func (s *SQLStore) loadThemes(ctx context.Context, scorecardID string) ([]model.ThemeScore, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT theme, score, weight, effective_weight, observations, samples
		FROM scorecard_themes
		WHERE scorecard_id = ?
		ORDER BY theme`), scorecardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []model.ThemeScore
	for rows.Next() {
		var (
			ts      model.ThemeScore
			theme   string
			score   sql.NullFloat64
			samples sql.NullString
		)
		if err := rows.Scan(&theme, &score, &ts.Weight, &ts.EffectiveWeight, &ts.Observations, &samples); err != nil {
			return nil, err
		}
		ts.Theme = model.ThemeKey(theme)
		if score.Valid {
			v := score.Float64
			ts.Score = &v
		}
		if samples.Valid && samples.String != "" && samples.String != "null" {
			if err := json.Unmarshal([]byte(samples.String), &ts.Samples); err != nil {
				return nil, err
			}
		}
		themes = append(themes, ts)
	}
	return themes, rows.Err()
}

const alertColumns = `id, store_id, analysis_type, theme, observed, threshold, comparison, severity, scorecard_id, description, created_at, resolved, resolved_at`

// CreateIfNoneOpen 依赖部分唯一索引 idx_alerts_open_type，冲突时不写入
func (s *SQLStore) CreateIfNoneOpen(ctx context.Context, a model.Alert) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		a.ID, a.StoreID, string(a.AnalysisType), string(a.Theme), a.Observed, a.Threshold,
		string(a.Comparison), string(a.Severity), a.ScorecardID, a.Description, a.CreatedAt.UnixNano(),
		false, nullTime(a.ResolvedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1 = 1`
	var args []any
	if filter.StoreID != "" {
		query += ` AND store_id = ?`
		args = append(args, filter.StoreID)
	}
	if filter.Resolved != nil {
		query += ` AND resolved = ?`
		args = append(args, *filter.Resolved)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLStore) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+alertColumns+` FROM alerts WHERE id = ?`), id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ResolveAlert(ctx context.Context, id string, at time.Time) (model.Alert, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(`UPDATE alerts SET resolved = ?, resolved_at = ? WHERE id = ? AND resolved = ?`),
		true, at.UnixNano(), id, false)
	if err != nil {
		return model.Alert{}, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return s.GetAlert(ctx, id)
}

func (s *SQLStore) GetWeights(ctx context.Context, analysisType model.AnalysisType) (model.WeightConfig, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT weights FROM theme_weights WHERE analysis_type = ?`), string(analysisType)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var w model.WeightConfig
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, false, fmt.Errorf("decode weights of %s: %w", analysisType, err)
	}
	return w, true, nil
}

func (s *SQLStore) PutWeights(ctx context.Context, analysisType model.AnalysisType, weights model.WeightConfig) error {
	raw, err := json.Marshal(weights)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO theme_weights (analysis_type, weights, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (analysis_type) DO UPDATE SET weights = excluded.weights, updated_at = excluded.updated_at`),
		string(analysisType), string(raw), time.Now().UnixNano())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var (
		a          model.Alert
		typ        string
		theme      string
		comparison string
		severity   string
		scID       sql.NullString
		desc       sql.NullString
		createdAt  int64
		resolvedAt sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.StoreID, &typ, &theme, &a.Observed, &a.Threshold, &comparison, &severity,
		&scID, &desc, &createdAt, &a.Resolved, &resolvedAt); err != nil {
		return model.Alert{}, err
	}
	a.AnalysisType = model.AnalysisType(typ)
	a.Theme = model.ThemeKey(theme)
	a.Comparison = model.Comparison(comparison)
	a.Severity = model.Severity(severity)
	a.ScorecardID = scID.String
	a.Description = desc.String
	a.CreatedAt = time.Unix(0, createdAt)
	if resolvedAt.Valid {
		t := time.Unix(0, resolvedAt.Int64)
		a.ResolvedAt = &t
	}
	return a, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
