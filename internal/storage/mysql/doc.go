// Package mysql persists the task collection in a relational database. The
// same backend runs against MySQL (go-sql-driver/mysql) and SQLite
// (modernc.org/sqlite); every save replaces the whole table inside one
// transaction.
package mysql
