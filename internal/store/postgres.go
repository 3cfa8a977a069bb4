package store

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
)

// PostgresStore is a Store backed by postgres via pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewPostgresStore connects to the given DSN and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}
	return &PostgresStore{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

var _ Store = (*PostgresStore)(nil)

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// SaveDraft implements Store.
func (p *PostgresStore) SaveDraft(ctx context.Context, d *draft.ContentDraft) error {
	report, err := json.Marshal(d.GateReport)
	if err != nil {
		return errors.Wrap(err, "marshaling gate report")
	}
	guidance, err := json.Marshal(d.RegenerationGuidance)
	if err != nil {
		return errors.Wrap(err, "marshaling regeneration guidance")
	}
	refs, err := json.Marshal(d.ResearchRefs)
	if err != nil {
		return errors.Wrap(err, "marshaling research refs")
	}

	query, args, err := p.sb.Insert("drafts").
		Columns("id", "client_id", "platform", "content_type", "copy", "image_ref",
			"publish_hint", "pillar", "persona", "format", "freshness", "research_refs",
			"gate_status", "gate_report", "status", "regeneration_count",
			"regeneration_guidance", "created_at", "updated_at").
		Values(d.ID, d.ClientID, d.Platform, d.ContentType, d.Copy, d.ImageRef,
			d.PublishHint, d.Pillar, d.Persona, d.Format, d.Freshness, refs,
			d.GateStatus, report, d.Status, d.RegenerationCount,
			guidance, d.CreatedAt, d.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			copy = EXCLUDED.copy,
			image_ref = EXCLUDED.image_ref,
			publish_hint = EXCLUDED.publish_hint,
			gate_status = EXCLUDED.gate_status,
			gate_report = EXCLUDED.gate_report,
			status = EXCLUDED.status,
			regeneration_count = EXCLUDED.regeneration_count,
			regeneration_guidance = EXCLUDED.regeneration_guidance,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building draft upsert")
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "saving draft")
	}
	return nil
}

// GetDraft implements Store.
func (p *PostgresStore) GetDraft(ctx context.Context, id string) (*draft.ContentDraft, error) {
	query, args, err := p.draftSelect().Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building draft select")
	}

	d, err := p.scanDraft(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewNotFoundError("draft", id)
		}
		return nil, errors.Wrap(err, "loading draft")
	}
	return d, nil
}

// ListDraftsByStatus implements Store.
func (p *PostgresStore) ListDraftsByStatus(ctx context.Context, status draft.Status) ([]*draft.ContentDraft, error) {
	query, args, err := p.draftSelect().
		Where(sq.Eq{"status": status}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building draft list")
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing drafts")
	}
	defer rows.Close()

	var out []*draft.ContentDraft
	for rows.Next() {
		d, err := p.scanDraft(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning draft row")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ApplyTransition implements Store. The WHERE clause on the current status
// makes the compare-and-swap atomic; an affected-row count of zero means
// another transition won. The audit insert shares the transaction with the
// status update, so no committed transition lacks its audit row.
func (p *PostgresStore) ApplyTransition(ctx context.Context, id string, from, to draft.Status, audit draft.ApprovalEvent) (bool, error) {
	updateSQL, updateArgs, err := p.sb.Update("drafts").
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building status update")
	}
	auditSQL, auditArgs, err := p.sb.Insert("approval_events").
		Columns("id", "draft_id", "client_id", "actor", "old_status", "new_status", "message", "at").
		Values(audit.ID, audit.DraftID, audit.ClientID, audit.Actor, audit.OldStatus, audit.NewStatus, audit.Message, audit.At).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building approval event insert")
	}

	// Status update and audit row commit or roll back together.
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "beginning transition")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateSQL, updateArgs...)
	if err != nil {
		return false, errors.Wrap(err, "updating draft status")
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing draft.
		if _, err := p.GetDraft(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := tx.Exec(ctx, auditSQL, auditArgs...); err != nil {
		return false, errors.Wrap(err, "appending approval event")
	}
	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "committing transition")
	}
	return true, nil
}

// ApprovalEvents implements Store.
func (p *PostgresStore) ApprovalEvents(ctx context.Context, draftID string) ([]draft.ApprovalEvent, error) {
	query, args, err := p.sb.Select("id", "draft_id", "client_id", "actor", "old_status", "new_status", "message", "at").
		From("approval_events").
		Where(sq.Eq{"draft_id": draftID}).
		OrderBy("at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building approval event select")
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "loading approval events")
	}
	defer rows.Close()

	var out []draft.ApprovalEvent
	for rows.Next() {
		var e draft.ApprovalEvent
		if err := rows.Scan(&e.ID, &e.DraftID, &e.ClientID, &e.Actor, &e.OldStatus, &e.NewStatus, &e.Message, &e.At); err != nil {
			return nil, errors.Wrap(err, "scanning approval event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveRecoveryLog implements Store.
func (p *PostgresStore) SaveRecoveryLog(ctx context.Context, r draft.RecoveryLog) error {
	query, args, err := p.sb.Insert("recovery_logs").
		Columns("id", "draft_id", "client_id", "platform", "platform_post_id", "status", "created_at", "updated_at").
		Values(r.ID, r.DraftID, r.ClientID, r.Platform, r.PlatformPostID, r.Status, r.CreatedAt, r.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			platform_post_id = EXCLUDED.platform_post_id,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building recovery log upsert")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "saving recovery log")
	}
	return nil
}

// RecoveryLogs implements Store.
func (p *PostgresStore) RecoveryLogs(ctx context.Context, draftID string) ([]draft.RecoveryLog, error) {
	query, args, err := p.sb.Select("id", "draft_id", "client_id", "platform", "platform_post_id", "status", "created_at", "updated_at").
		From("recovery_logs").
		Where(sq.Eq{"draft_id": draftID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building recovery log select")
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "loading recovery logs")
	}
	defer rows.Close()

	var out []draft.RecoveryLog
	for rows.Next() {
		var r draft.RecoveryLog
		if err := rows.Scan(&r.ID, &r.DraftID, &r.ClientID, &r.Platform, &r.PlatformPostID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning recovery log")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PublishState implements Store. The table holds a single row.
func (p *PostgresStore) PublishState(ctx context.Context) (draft.PublishState, error) {
	query, args, err := p.sb.Select("paused", "changed_by", "changed_at").
		From("publish_state").
		Where(sq.Eq{"singleton": true}).
		ToSql()
	if err != nil {
		return draft.PublishState{}, errors.Wrap(err, "building publish state select")
	}

	var s draft.PublishState
	err = p.pool.QueryRow(ctx, query, args...).Scan(&s.Paused, &s.ChangedBy, &s.ChangedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return draft.PublishState{}, nil
	}
	if err != nil {
		return draft.PublishState{}, errors.Wrap(err, "loading publish state")
	}
	return s, nil
}

// SetPublishState implements Store.
func (p *PostgresStore) SetPublishState(ctx context.Context, s draft.PublishState) error {
	query, args, err := p.sb.Insert("publish_state").
		Columns("singleton", "paused", "changed_by", "changed_at").
		Values(true, s.Paused, s.ChangedBy, s.ChangedAt).
		Suffix(`ON CONFLICT (singleton) DO UPDATE SET
			paused = EXCLUDED.paused,
			changed_by = EXCLUDED.changed_by,
			changed_at = EXCLUDED.changed_at`).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building publish state upsert")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "saving publish state")
	}
	return nil
}

// Enqueue implements Store.
func (p *PostgresStore) Enqueue(ctx context.Context, e draft.QueueEntry) error {
	query, args, err := p.sb.Insert("publish_queue").
		Columns("draft_id", "publish_at", "retry_count").
		Values(e.DraftID, e.PublishAt, e.RetryCount).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building queue insert")
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "enqueueing publish job")
	}
	return nil
}

// DueEntries implements Store. The DELETE ... RETURNING form claims due
// rows atomically so two scheduler ticks never double-publish.
func (p *PostgresStore) DueEntries(ctx context.Context, now time.Time) ([]draft.QueueEntry, error) {
	rows, err := p.pool.Query(ctx,
		`DELETE FROM publish_queue WHERE publish_at <= $1
		 RETURNING draft_id, publish_at, retry_count`, now)
	if err != nil {
		return nil, errors.Wrap(err, "claiming due queue entries")
	}
	defer rows.Close()

	var out []draft.QueueEntry
	for rows.Next() {
		var e draft.QueueEntry
		if err := rows.Scan(&e.DraftID, &e.PublishAt, &e.RetryCount); err != nil {
			return nil, errors.Wrap(err, "scanning queue entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueueLength implements Store.
func (p *PostgresStore) QueueLength(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM publish_queue`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting publish queue")
	}
	return n, nil
}

func (p *PostgresStore) draftSelect() sq.SelectBuilder {
	return p.sb.Select("id", "client_id", "platform", "content_type", "copy", "image_ref",
		"publish_hint", "pillar", "persona", "format", "freshness", "research_refs",
		"gate_status", "gate_report", "status", "regeneration_count",
		"regeneration_guidance", "created_at", "updated_at").
		From("drafts")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanDraft(row rowScanner) (*draft.ContentDraft, error) {
	var d draft.ContentDraft
	var report, guidance, refs []byte

	err := row.Scan(&d.ID, &d.ClientID, &d.Platform, &d.ContentType, &d.Copy, &d.ImageRef,
		&d.PublishHint, &d.Pillar, &d.Persona, &d.Format, &d.Freshness, &refs,
		&d.GateStatus, &report, &d.Status, &d.RegenerationCount,
		&guidance, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(report) > 0 && string(report) != "null" {
		d.GateReport = &draft.QualityReport{}
		if err := json.Unmarshal(report, d.GateReport); err != nil {
			return nil, errors.Wrap(err, "unmarshaling gate report")
		}
	}
	if len(guidance) > 0 {
		if err := json.Unmarshal(guidance, &d.RegenerationGuidance); err != nil {
			return nil, errors.Wrap(err, "unmarshaling regeneration guidance")
		}
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &d.ResearchRefs); err != nil {
			return nil, errors.Wrap(err, "unmarshaling research refs")
		}
	}
	return &d, nil
}
