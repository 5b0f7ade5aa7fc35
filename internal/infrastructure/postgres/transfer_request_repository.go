package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.TransferRequestRepository = (*TransferRequestRepo)(nil)

// TransferRequestRepo solicitudes de traslado entre bodegas.
type TransferRequestRepo struct {
	q Querier
}

// NewTransferRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRequestRepository(q Querier) *TransferRequestRepo {
	return &TransferRequestRepo{q: q}
}

const transferColumns = `id, product_id, from_warehouse_id, to_warehouse_id, quantity, status, requested_by,
	approved_by, received_by, notes, approval_notes, created_at, updated_at, approved_at, completed_at`

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var t entity.TransferRequest
	err := row.Scan(&t.ID, &t.ProductID, &t.FromWarehouseID, &t.ToWarehouseID, &t.Quantity, &t.Status,
		&t.RequestedBy, &t.ApprovedBy, &t.ReceivedBy, &t.Notes, &t.ApprovalNotes,
		&t.CreatedAt, &t.UpdatedAt, &t.ApprovedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransferRequestRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	query := `INSERT INTO transfer_requests (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.ProductID, t.FromWarehouseID, t.ToWarehouseID, t.Quantity, t.Status, t.RequestedBy,
		t.ApprovedBy, t.ReceivedBy, t.Notes, t.ApprovalNotes, t.CreatedAt, t.UpdatedAt, t.ApprovedAt, t.CompletedAt,
	)
	if err != nil {
		return mapError("insert transfer request", err)
	}
	return nil
}

func (r *TransferRequestRepo) get(ctx context.Context, op, suffix, id string) (*entity.TransferRequest, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return t, nil
}

func (r *TransferRequestRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, "get transfer request", "", id)
}

func (r *TransferRequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, "get transfer request for update", " FOR UPDATE", id)
}

func (r *TransferRequestRepo) Update(ctx context.Context, t *entity.TransferRequest) error {
	query := `
		UPDATE transfer_requests SET
			quantity = $2, status = $3, approved_by = $4, received_by = $5, approval_notes = $6,
			updated_at = $7, approved_at = $8, completed_at = $9
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, t.ID, t.Quantity, t.Status, t.ApprovedBy, t.ReceivedBy, t.ApprovalNotes,
		t.UpdatedAt, t.ApprovedAt, t.CompletedAt)
	if err != nil {
		return mapError("update transfer request", err)
	}
	return nil
}

func (r *TransferRequestRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.TransferRequest, int, error) {
	var w whereBuilder
	if f.WarehouseID != "" {
		w.add("(from_warehouse_id = $%[1]d OR to_warehouse_id = $%[1]d)", f.WarehouseID)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	if f.ProductID != "" {
		w.add("product_id = $%d", f.ProductID)
	}
	if f.RequestedBy != "" {
		w.add("requested_by = $%d", f.RequestedBy)
	}
	if f.VisibleWarehouseIDs != nil {
		// slice vacío no hace match con ninguna fila
		w.add("(from_warehouse_id = ANY($%[1]d) OR to_warehouse_id = ANY($%[1]d))", f.VisibleWarehouseIDs)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM transfer_requests`+w.clause(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError("count transfer requests", err)
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.q.Query(ctx, `SELECT `+transferColumns+` FROM transfer_requests`+w.clause()+
		` ORDER BY created_at DESC, id`+pageSQL, args...)
	if err != nil {
		return nil, 0, mapError("list transfer requests", err)
	}
	defer rows.Close()
	list := []*entity.TransferRequest{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, mapError("scan transfer request", err)
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}
