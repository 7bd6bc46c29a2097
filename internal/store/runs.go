package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IM594/vivi-server-merge-tool/internal/model"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, status, pairs_text, sources, plan_file, total_servers, pair_count,
	alert_count, secondary_alert_count, merge_count, output_dir, error_message, created_at, completed_at`

// CreateRun 创建运行记录（状态 running）
func (s *Store) CreateRun(run *model.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Status = model.RunRunning
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, pairs_text, sources, plan_file, output_dir, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.PairsText, strings.Join(run.Sources, "\n"), run.PlanFile, run.OutputDir, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun 写回统计并标记完成
func (s *Store) FinishRun(id string, sum model.RunSummary) error {
	res, err := s.db.Exec(`
		UPDATE runs SET
			status = ?,
			total_servers = ?,
			pair_count = ?,
			alert_count = ?,
			secondary_alert_count = ?,
			merge_count = ?,
			completed_at = ?
		WHERE id = ?
	`, model.RunDone, sum.TotalServers, sum.PairCount, sum.AlertCount, sum.SecondaryAlertCount, sum.MergeCount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return expectOne(res)
}

// FailRun 标记失败并记录错误信息
func (s *Store) FailRun(id, message string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, model.RunFailed, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	return expectOne(res)
}

// InsertMerges 批量写入合并审计日志
func (s *Store) InsertMerges(runID string, entries []model.SwapLogEntry) error {
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO run_merges (run_id, seq, server_a, server_b, status, reason, row1, row2, before1, after1, before2, after2)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, e := range entries {
			if _, err := stmt.Exec(runID, i, int64(e.Pair.A), int64(e.Pair.B), e.Status, e.Reason,
				e.Row1, e.Row2, e.Before1, e.After1, e.Before2, e.After2); err != nil {
				return fmt.Errorf("failed to insert merge %d: %w", i, err)
			}
		}
		return nil
	})
}

// InsertNotices 批量写入提示
func (s *Store) InsertNotices(runID string, notices []model.Notice) error {
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO run_notices (run_id, seq, kind, level, message) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, n := range notices {
			if _, err := stmt.Exec(runID, i, n.Kind, n.Level, n.Message); err != nil {
				return fmt.Errorf("failed to insert notice %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListRuns 按创建时间倒序列出最近的运行
func (s *Store) ListRuns(limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun 读取运行记录及其合并日志、提示
func (s *Store) GetRun(id string) (*model.RunDetail, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	detail := &model.RunDetail{Run: run, Merges: []model.SwapLogEntry{}, Notices: []model.Notice{}}

	mrows, err := s.db.Query(`
		SELECT server_a, server_b, status, reason, row1, row2, before1, after1, before2, after2
		FROM run_merges WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()
	for mrows.Next() {
		var e model.SwapLogEntry
		var a, b int64
		if err := mrows.Scan(&a, &b, &e.Status, &e.Reason, &e.Row1, &e.Row2,
			&e.Before1, &e.After1, &e.Before2, &e.After2); err != nil {
			return nil, err
		}
		e.Pair = model.CandidatePair{A: model.ServerID(a), B: model.ServerID(b)}
		detail.Merges = append(detail.Merges, e)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	nrows, err := s.db.Query(`SELECT kind, level, message FROM run_notices WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer nrows.Close()
	for nrows.Next() {
		var n model.Notice
		if err := nrows.Scan(&n.Kind, &n.Level, &n.Message); err != nil {
			return nil, err
		}
		detail.Notices = append(detail.Notices, n)
	}
	return detail, nrows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (model.Run, error) {
	var run model.Run
	var sources string
	var completed sql.NullTime
	err := sc.Scan(&run.ID, &run.Status, &run.PairsText, &sources, &run.PlanFile,
		&run.TotalServers, &run.PairCount, &run.AlertCount, &run.SecondaryAlertCount, &run.MergeCount,
		&run.OutputDir, &run.ErrorMessage, &run.CreatedAt, &completed)
	if err != nil {
		return model.Run{}, err
	}
	run.Sources = []string{}
	if sources != "" {
		run.Sources = strings.Split(sources, "\n")
	}
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}
