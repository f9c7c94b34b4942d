// seed loads demo catalog data, users and opening stock. Catalog rows are
// upserted by code, so running it twice is safe; opening stock is only
// written when the ledger is empty.
//
// Usage: go run ./cmd/seed [-admin-password secret] [-staff-password secret]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stock-engine/internal/config"
	"stock-engine/internal/core"
	"stock-engine/internal/db"
	"stock-engine/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	adminPassword := flag.String("admin-password", "admin-change-me", "password for the admin user")
	staffPassword := flag.String("staff-password", "staff-change-me", "password for the staff user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	logger.Info("restoring catalog")
	if err := seedCatalog(ctx, pool); err != nil {
		logger.Fatal("catalog", zap.Error(err))
	}

	logger.Info("restoring users")
	users := core.NewUserService(pool)
	if _, err := ensureUser(ctx, users, "admin", "admin@example.com", *adminPassword, core.RoleAdmin); err != nil {
		logger.Fatal("admin user", zap.Error(err))
	}
	staff, err := ensureUser(ctx, users, "staff", "staff@example.com", *staffPassword, "staff")
	if err != nil {
		logger.Fatal("staff user", zap.Error(err))
	}
	var mainWarehouse int
	if err := pool.QueryRow(ctx, `SELECT id FROM warehouses WHERE code = 'MAIN'`).Scan(&mainWarehouse); err != nil {
		logger.Fatal("main warehouse", zap.Error(err))
	}
	if err := users.GrantWarehouse(ctx, staff.ID, mainWarehouse); err != nil {
		logger.Fatal("grant", zap.Error(err))
	}

	inventory := core.NewInventoryService(pool)
	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&rows); err != nil {
		logger.Fatal("inventory count", zap.Error(err))
	}
	if rows == 0 {
		logger.Info("writing opening stock")
		if err := seedStock(ctx, pool, inventory); err != nil {
			logger.Fatal("opening stock", zap.Error(err))
		}
	} else {
		logger.Info("ledger not empty, opening stock skipped", zap.Int("rows", rows))
	}

	n, err := inventory.RefreshAllStatuses(ctx)
	if err != nil {
		logger.Fatal("status refresh", zap.Error(err))
	}
	logger.Info("seed data restored", zap.Int("products", n))
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO warehouses (code, name, location) VALUES
		    ('MAIN',  'Main Warehouse',  'Head office'),
		    ('NORTH', 'North Warehouse', 'North depot')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, location = EXCLUDED.location;

		INSERT INTO products (code, name, unit_of_measure, unit_price, reorder_point) VALUES
		    ('BRD-01', 'Sandwich Bread', 'loaf', 3.50, 20),
		    ('CAK-01', 'Sponge Cake',    'unit', 12.00, 5)
		ON CONFLICT (code) DO UPDATE
		    SET name = EXCLUDED.name, unit_price = EXCLUDED.unit_price, reorder_point = EXCLUDED.reorder_point;

		INSERT INTO raw_materials (code, name, category, unit_of_measure, unit_cost, reorder_point, opening_stock) VALUES
		    ('FLR', 'Flour', 'dry goods', 'kg', 0.80, 50, 200),
		    ('SGR', 'Sugar', 'dry goods', 'kg', 1.10, 20, 80),
		    ('EGG', 'Eggs',  'fresh',     'pc', 0.25, 60, 240)
		ON CONFLICT (code) DO NOTHING;

		INSERT INTO production_requirements (product_id)
		SELECT id FROM products WHERE code IN ('BRD-01', 'CAK-01')
		ON CONFLICT (product_id) DO NOTHING;

		INSERT INTO production_requirement_items (requirement_id, raw_material_id, quantity_per_unit)
		SELECT pr.id, rm.id, b.qty
		FROM (VALUES
		    ('BRD-01', 'FLR', 1),
		    ('CAK-01', 'FLR', 1),
		    ('CAK-01', 'SGR', 1),
		    ('CAK-01', 'EGG', 4)
		) AS b(product_code, material_code, qty)
		JOIN products p ON p.code = b.product_code
		JOIN production_requirements pr ON pr.product_id = p.id
		JOIN raw_materials rm ON rm.code = b.material_code
		ON CONFLICT (requirement_id, raw_material_id) DO UPDATE SET quantity_per_unit = EXCLUDED.quantity_per_unit;
	`)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog: %w", err)
	}
	return tx.Commit(ctx)
}

func ensureUser(ctx context.Context, users core.UserService, username, email, password, role string) (*core.User, error) {
	if u, err := users.GetByUsername(ctx, username); err == nil {
		return u, nil
	}
	return users.CreateUser(ctx, username, email, password, role)
}

func seedStock(ctx context.Context, pool *pgxpool.Pool, inventory core.InventoryService) error {
	ids := map[string]int{}
	rows, err := pool.Query(ctx, `
		SELECT 'p:' || code, id FROM products
		UNION ALL SELECT 'w:' || code, id FROM warehouses`)
	if err != nil {
		return fmt.Errorf("failed to load ids: %w", err)
	}
	for rows.Next() {
		var key string
		var id int
		if err := rows.Scan(&key, &id); err != nil {
			rows.Close()
			return err
		}
		ids[key] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	soon := time.Now().UTC().AddDate(0, 0, 3)
	later := time.Now().UTC().AddDate(0, 0, 10)
	batch := func(s string) *string { return &s }

	intakes := []core.IntakeInput{
		{Item: core.ProductItem(ids["p:BRD-01"]), WarehouseID: ids["w:MAIN"], Quantity: 30, BatchNo: batch("B-0001"), ExpiryDate: &soon},
		{Item: core.ProductItem(ids["p:BRD-01"]), WarehouseID: ids["w:MAIN"], Quantity: 40, BatchNo: batch("B-0002"), ExpiryDate: &later},
		{Item: core.ProductItem(ids["p:BRD-01"]), WarehouseID: ids["w:NORTH"], Quantity: 10},
		{Item: core.ProductItem(ids["p:CAK-01"]), WarehouseID: ids["w:MAIN"], Quantity: 5},
	}
	for _, in := range intakes {
		if _, err := inventory.Intake(ctx, in); err != nil {
			return fmt.Errorf("intake %s: %w", in.Item, err)
		}
	}
	return nil
}
