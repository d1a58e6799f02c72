package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is a scoped transaction on a dedicated connection. The outermost scope
// owns BEGIN/COMMIT; nested scopes are savepoints sharing the same
// connection, released on normal exit and rolled back on failure.
type Tx struct {
	db    *DB
	conn  *sql.Conn
	ctx   context.Context
	write bool
	depth int
}

// InTx runs fn inside a transaction. Writes issue BEGIN IMMEDIATE, acquiring
// the reserved lock up-front; reads issue a deferred BEGIN and observe a
// snapshot for the transaction's duration.
//
// fn errors roll the transaction back and a nil return commits; a panic in
// fn rolls back and re-panics.
func (db *DB) InTx(ctx context.Context, write bool, fn func(*Tx) error) (err error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	begin := "BEGIN"
	if write {
		begin = "BEGIN IMMEDIATE"
	}
	if _, err := conn.ExecContext(ctx, begin); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	db.activeTx.Add(1)
	tx := &Tx{db: db, conn: conn, ctx: ctx, write: write}

	defer func() {
		db.activeTx.Add(-1)
		if p := recover(); p != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			panic(p)
		} else if err != nil {
			if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
			}
		} else {
			if _, commitErr := conn.ExecContext(ctx, "COMMIT"); commitErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", commitErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

// Nested runs fn under a named savepoint on the same connection. A nil
// return releases the savepoint; an error rolls back to it, leaving the
// outer transaction intact. A panic rolls back to the savepoint and
// re-panics.
func (tx *Tx) Nested(fn func(*Tx) error) (err error) {
	tx.depth++
	sp := fmt.Sprintf("sp%d", tx.depth)
	if _, err := tx.conn.ExecContext(tx.ctx, "SAVEPOINT "+sp); err != nil {
		tx.depth--
		return fmt.Errorf("failed to create savepoint %s: %w", sp, err)
	}

	defer func() {
		tx.depth--
		if p := recover(); p != nil {
			_, _ = tx.conn.ExecContext(tx.ctx, "ROLLBACK TO "+sp)
			_, _ = tx.conn.ExecContext(tx.ctx, "RELEASE "+sp)
			panic(p)
		} else if err != nil {
			_, _ = tx.conn.ExecContext(tx.ctx, "ROLLBACK TO "+sp)
			_, _ = tx.conn.ExecContext(tx.ctx, "RELEASE "+sp)
		} else {
			if _, relErr := tx.conn.ExecContext(tx.ctx, "RELEASE "+sp); relErr != nil {
				err = fmt.Errorf("failed to release savepoint %s: %w", sp, relErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

// Context returns the context the transaction was opened with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Writable reports whether the transaction was opened for writing.
func (tx *Tx) Writable() bool {
	return tx.write
}

// Exec executes a statement within the transaction.
func (tx *Tx) Exec(query string, args ...any) (sql.Result, error) {
	return tx.conn.ExecContext(tx.ctx, query, args...)
}

// Query executes a query within the transaction.
func (tx *Tx) Query(query string, args ...any) (*sql.Rows, error) {
	return tx.conn.QueryContext(tx.ctx, query, args...)
}

// QueryRow executes a single-row query within the transaction.
func (tx *Tx) QueryRow(query string, args ...any) *sql.Row {
	return tx.conn.QueryRowContext(tx.ctx, query, args...)
}
