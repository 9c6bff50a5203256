package logic

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crisramb665/FundChain/internal/chain"
	"github.com/crisramb665/FundChain/internal/errs"
	"github.com/crisramb665/FundChain/internal/model"
	"github.com/crisramb665/FundChain/internal/repository"
	"github.com/crisramb665/FundChain/internal/tx"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	db, err := repository.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	if err != nil {
		t.Fatal(err)
	}
	return db, mock
}

func TestJournalRecord(t *testing.T) {
	db, mock := newMockDB(t)
	id := uint64(4)
	mock.ExpectExec(`INSERT INTO "transaction_journal" .* ON CONFLICT .* DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewJournalLogic(db).Record(context.Background(), tx.Entry{
		ID:         "0b8a4f0e-33a4-4f32-9a43-2f7b8c1d2e3f",
		Operation:  tx.OpPledge,
		CampaignID: &id,
		Account:    "0x00000000000000000000000000000000000000b1",
		TxHash:     "0xabc",
		Success:    false,
		Code:       errs.UserRejected,
		Error:      "request rejected in wallet",
		CreatedAt:  time.Unix(1_700_000_000, 0),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestJournalList(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "transaction_journal" WHERE account = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "transaction_journal" WHERE account = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "operation", "success"}).
			AddRow("b", "withdraw", true).
			AddRow("a", "pledge", false))

	rows, total, err := NewJournalLogic(db).List(context.Background(), JournalFilter{Account: "0x01"}, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(rows) != 2 || rows[0].ID != "b" || !rows[0].Success {
		t.Fatalf("rows = %+v, total = %d", rows, total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFromEvent(t *testing.T) {
	ev := &chain.Event{
		Name:        chain.EventPledged,
		CampaignID:  3,
		Account:     common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		Amount:      big.NewInt(250),
		Fields:      map[string]interface{}{"amount": big.NewInt(250)},
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 12,
		LogIndex:    1,
	}
	row, err := FromEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	if row.CampaignID != 3 || row.Amount != "250" || row.EventType != "Pledged" || row.Data != `{"amount":250}` {
		t.Fatalf("row = %+v", row)
	}
	if row.Account != ev.Account.Hex() || row.TxHash != ev.TxHash.Hex() {
		t.Fatalf("row = %+v", row)
	}

	cancelled, err := FromEvent(&chain.Event{Name: chain.EventCampaignCancelled, TxHash: common.HexToHash("0x02")})
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Amount != "" || cancelled.Account != "" {
		t.Fatalf("row = %+v", cancelled)
	}
}

func TestActivitySaveIgnoresDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO "activity" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := []model.ActivityModel{
		{TxHash: "0x01", LogIndex: 0, BlockNumber: 5, CampaignID: 1, EventType: "Pledged"},
		{TxHash: "0x01", LogIndex: 1, BlockNumber: 5, CampaignID: 1, EventType: "Pledged"},
	}
	if err := NewActivityLogic(db).Save(context.Background(), rows); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := NewActivityLogic(db).Save(context.Background(), nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestActivityLatestBlock(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(block_number\), 0\) FROM "activity"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(42))

	block, err := NewActivityLogic(db).LatestBlock(context.Background())
	if err != nil || block != 42 {
		t.Fatalf("LatestBlock = %d, %v", block, err)
	}
}

func TestActivityListByCampaign(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity" WHERE campaign_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "activity" WHERE campaign_id = \$1 ORDER BY block_number ASC, log_index ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"tx_hash", "log_index", "campaign_id", "event_type", "amount"}).
			AddRow("0x01", 0, 7, "CampaignCreated", "1000"))

	rows, total, err := NewActivityLogic(db).ListByCampaign(context.Background(), 7, 1, 10)
	if err != nil {
		t.Fatalf("ListByCampaign: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].EventType != "CampaignCreated" || rows[0].Amount != "1000" {
		t.Fatalf("rows = %+v", rows)
	}
}
