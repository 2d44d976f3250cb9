package beq

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var ErrReceiptNotFound = errors.New("receipt not found")

type DBReceipt struct {
	ID          string         `db:"id"`
	ChainID     int64          `db:"chain_id"`
	SellToken   string         `db:"sell_token"`
	BuyToken    string         `db:"buy_token"`
	Mode        string         `db:"mode"`
	BEQProvider sql.NullString `db:"beq_provider"`
	RawProvider sql.NullString `db:"raw_provider"`
	QuoteCount  int            `db:"quote_count"`
	Body        []byte         `db:"body"`
	OriginID    sql.NullString `db:"origin_id"`
	CreatedAt   time.Time      `db:"created_at"`
	InsertedAt  time.Time      `db:"inserted_at"`
}

var insertReceiptQuery = `
INSERT INTO receipt (id, chain_id, sell_token, buy_token, mode, beq_provider, raw_provider, quote_count, body, origin_id, created_at)
VALUES (:id, :chain_id, :sell_token, :buy_token, :mode, :beq_provider, :raw_provider, :quote_count, :body, :origin_id, :created_at)
ON CONFLICT (id) DO UPDATE
SET beq_provider = :beq_provider, raw_provider = :raw_provider, quote_count = :quote_count, body = :body, created_at = :created_at`

var getReceiptQuery = `
SELECT body
FROM receipt
WHERE id = $1`

// PostgresArchiveBackend is the durable receipt store. Re-archiving the same
// request id overwrites with the fresher decision, which matches the
// content-derived identity semantics: same request, latest answer.
type PostgresArchiveBackend struct {
	db *sqlx.DB

	insertReceipt *sqlx.NamedStmt
	getReceipt    *sqlx.Stmt
}

func NewPostgresArchiveBackend(postgresDSN string) (*PostgresArchiveBackend, error) {
	db, err := sqlx.Connect("postgres", postgresDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(20)

	insertReceipt, err := db.PrepareNamed(insertReceiptQuery)
	if err != nil {
		return nil, err
	}
	getReceipt, err := db.Preparex(getReceiptQuery)
	if err != nil {
		return nil, err
	}

	return &PostgresArchiveBackend{
		db:            db,
		insertReceipt: insertReceipt,
		getReceipt:    getReceipt,
	}, nil
}

func (b *PostgresArchiveBackend) ArchiveReceipt(ctx context.Context, receipt *DecisionReceipt) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	row := DBReceipt{
		ID:         receipt.ID,
		ChainID:    int64(receipt.Request.ChainID),
		SellToken:  receipt.Request.SellToken.Hex(),
		BuyToken:   receipt.Request.BuyToken.Hex(),
		Mode:       receipt.Request.Mode.String(),
		QuoteCount: len(receipt.RankedQuotes),
		Body:       body,
		OriginID:   sql.NullString{String: receipt.Origin, Valid: receipt.Origin != ""},
		CreatedAt:  receipt.CreatedAt,
	}
	if receipt.BestExecutableProviderID != nil {
		row.BEQProvider = sql.NullString{String: *receipt.BestExecutableProviderID, Valid: true}
	}
	if receipt.BestRawOutputProviderID != nil {
		row.RawProvider = sql.NullString{String: *receipt.BestRawOutputProviderID, Valid: true}
	}

	_, err = b.insertReceipt.ExecContext(ctx, row)
	return err
}

func (b *PostgresArchiveBackend) GetReceipt(ctx context.Context, id string) (*DecisionReceipt, error) {
	var body []byte
	err := b.getReceipt.GetContext(ctx, &body, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	} else if err != nil {
		return nil, err
	}

	var receipt DecisionReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (b *PostgresArchiveBackend) Close() error {
	return b.db.Close()
}
