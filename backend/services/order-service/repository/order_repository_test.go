package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestFindByLocalID_Found(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "order_number", "local_id", "total_amount", "payment_method", "status", "created_at", "updated_at"}).
		AddRow(id, "POS-20250101-120000-abcd1234", "local-1", 5.00, "CASH", models.OrderStatusCompleted, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE local_id = $1`)).
		WillReturnRows(rows)

	order, err := repo.FindByLocalID(context.Background(), "local-1")
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, "local-1", *order.LocalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByLocalID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE local_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	order, err := repo.FindByLocalID(context.Background(), "missing")
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDecrementStock_ReturnsRemaining(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
	mock.ExpectCommit()

	remaining, err := repo.DecrementStock(context.Background(), uuid.New(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_UnknownProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectCommit()

	_, err := repo.DecrementStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestUpdateStatus_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusRefunded)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusCancelled)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestWithTx_CommitsOrderStockAndMovementTogether(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	orderID := uuid.New()
	productID := uuid.New()
	localID := "local-42"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "stock_movements"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	err := repo.WithTx(context.Background(), func(tx repository.OrderRepository) error {
		order := &models.Order{
			ID:            orderID,
			OrderNumber:   "POS-20250101-120000-" + orderID.String()[:8],
			LocalID:       &localID,
			TotalAmount:   5,
			PaymentMethod: "CASH",
			Status:        models.OrderStatusCompleted,
			OrderItems: []models.OrderItem{
				{ProductID: productID, Name: "Coffee", Quantity: 2, UnitPrice: 2.5, Subtotal: 5},
			},
		}
		if err := tx.Create(context.Background(), order); err != nil {
			return err
		}
		if _, err := tx.DecrementStock(context.Background(), productID, 2); err != nil {
			return err
		}
		return tx.CreateStockMovements(context.Background(), []models.StockMovement{
			{ProductID: productID, OrderID: &orderID, Type: models.MovementTypeSale, Quantity: -2, Reason: "Order #" + orderID.String()[:8]},
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnUnknownProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock - $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(tx repository.OrderRepository) error {
		_, err := tx.DecrementStock(context.Background(), uuid.New(), 1)
		return err
	})

	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStockMovements_EmptyIsNoop(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	assert.NoError(t, repo.CreateStockMovements(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
