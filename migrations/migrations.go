package migrations

import (
	"database/sql"
	"time"
)

func execWithRetry(db *sql.DB, retries int, query string) error {
	_, err := db.Exec(query)
	if err != nil {
		// Retry creating the table
		for i := 0; i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
			if err == nil {
				break
			}
		}
	}
	return err
}

// AutoMigrateUsers creates the users table if it does not exist.
func AutoMigrateUsers(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL
		);
	`
	return execWithRetry(db, retries, query)
}

// AutoMigrateCatalog creates the dish and ingredient tables, including the
// requirement and conflict edge tables. Conflict rows are stored as an
// unordered pair with ingredient_a < ingredient_b.
func AutoMigrateCatalog(retries int, db *sql.DB) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS dishes (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS ingredients (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL UNIQUE,
			price DOUBLE NOT NULL,
			stock INT NULL
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS ingredient_requirements (
			id INT AUTO_INCREMENT PRIMARY KEY,
			ingredient_id INT NOT NULL,
			requires_id INT NOT NULL,
			UNIQUE KEY uniq_requirement (ingredient_id, requires_id),
			FOREIGN KEY (ingredient_id) REFERENCES ingredients(id),
			FOREIGN KEY (requires_id) REFERENCES ingredients(id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS ingredient_conflicts (
			id INT AUTO_INCREMENT PRIMARY KEY,
			ingredient_a INT NOT NULL,
			ingredient_b INT NOT NULL,
			UNIQUE KEY uniq_conflict (ingredient_a, ingredient_b),
			FOREIGN KEY (ingredient_a) REFERENCES ingredients(id),
			FOREIGN KEY (ingredient_b) REFERENCES ingredients(id)
		);
		`,
	}
	for _, query := range queries {
		if err := execWithRetry(db, retries, query); err != nil {
			return err
		}
	}
	return nil
}

// AutoMigrateOrders creates the orders and order_ingredients tables if they
// do not exist.
func AutoMigrateOrders(retries int, db *sql.DB) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS orders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			dish_id INT NOT NULL,
			size VARCHAR(10) NOT NULL,
			total DOUBLE NOT NULL,
			status VARCHAR(20) NOT NULL,
			idempotent_key VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (dish_id) REFERENCES dishes(id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS order_ingredients (
			id INT AUTO_INCREMENT PRIMARY KEY,
			order_id INT NOT NULL,
			ingredient_id INT NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (ingredient_id) REFERENCES ingredients(id)
		);
		`,
	}
	for _, query := range queries {
		if err := execWithRetry(db, retries, query); err != nil {
			return err
		}
	}
	return nil
}

// SeedCatalog loads a starter catalog when the tables are empty. Conflict
// pairs are inserted normalized (LEAST/GREATEST) so each pair exists once.
func SeedCatalog(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ingredients`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	dishes := []string{"Margherita", "Quattro Stagioni", "Calzone", "Ortolana"}
	for _, name := range dishes {
		if _, err := db.Exec(`INSERT IGNORE INTO dishes (name) VALUES (?)`, name); err != nil {
			return err
		}
	}

	ingredients := []struct {
		name  string
		price float64
		stock sql.NullInt64
	}{
		{"mozzarella", 1.5, sql.NullInt64{}},
		{"parmesan", 2, sql.NullInt64{Int64: 20, Valid: true}},
		{"tomatoes", 1, sql.NullInt64{Int64: 30, Valid: true}},
		{"olives", 0.8, sql.NullInt64{}},
		{"mushrooms", 1.2, sql.NullInt64{Int64: 15, Valid: true}},
		{"eggs", 1, sql.NullInt64{Int64: 12, Valid: true}},
		{"ham", 2.5, sql.NullInt64{Int64: 10, Valid: true}},
		{"artichokes", 1.8, sql.NullInt64{Int64: 8, Valid: true}},
	}
	ids := make(map[string]int64, len(ingredients))
	for _, ing := range ingredients {
		res, err := db.Exec(`INSERT INTO ingredients (name, price, stock) VALUES (?, ?, ?)`, ing.name, ing.price, ing.stock)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ids[ing.name] = id
	}

	requirements := [][2]string{
		{"tomatoes", "olives"},
		{"ham", "mozzarella"},
	}
	for _, pair := range requirements {
		_, err := db.Exec(`INSERT IGNORE INTO ingredient_requirements (ingredient_id, requires_id) VALUES (?, ?)`,
			ids[pair[0]], ids[pair[1]])
		if err != nil {
			return err
		}
	}

	conflicts := [][2]string{
		{"eggs", "mushrooms"},
		{"ham", "artichokes"},
	}
	for _, pair := range conflicts {
		_, err := db.Exec(`INSERT IGNORE INTO ingredient_conflicts (ingredient_a, ingredient_b) VALUES (LEAST(?, ?), GREATEST(?, ?))`,
			ids[pair[0]], ids[pair[1]], ids[pair[0]], ids[pair[1]])
		if err != nil {
			return err
		}
	}

	return nil
}
