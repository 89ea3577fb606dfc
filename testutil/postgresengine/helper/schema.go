package helper

import "testing"

const createBooksTableSQL = `
CREATE TABLE IF NOT EXISTS books (
    book_id          BIGSERIAL PRIMARY KEY,
    title            TEXT NOT NULL,
    author           TEXT NOT NULL,
    isbn             TEXT NOT NULL UNIQUE,
    publisher        TEXT NOT NULL DEFAULT '',
    publication_year INT NOT NULL DEFAULT 0,
    genre            TEXT NOT NULL DEFAULT '',
    total_copies     INT NOT NULL,
    available_copies INT NOT NULL CHECK (available_copies >= 0),
    description      TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createUsersTableSQL = `
CREATE TABLE IF NOT EXISTS users (
    user_id         BIGSERIAL PRIMARY KEY,
    first_name      TEXT NOT NULL,
    last_name       TEXT NOT NULL,
    email           TEXT NOT NULL UNIQUE,
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    role            TEXT NOT NULL DEFAULT 'member',
    password_hash   TEXT NOT NULL DEFAULT '',
    membership_date TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createBorrowingsTableSQL = `
CREATE TABLE IF NOT EXISTS borrowings (
    borrowing_id BIGSERIAL PRIMARY KEY,
    user_id      BIGINT NOT NULL REFERENCES users (user_id),
    book_id      BIGINT NOT NULL REFERENCES books (book_id),
    borrow_date  TIMESTAMPTZ NOT NULL,
    due_date     TIMESTAMPTZ NOT NULL,
    return_date  TIMESTAMPTZ,
    is_returned  BOOLEAN NOT NULL DEFAULT FALSE,
    late_fee     DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes        TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// CreateLendingTables scaffolds the three lending tables if they do not exist.
func CreateLendingTables(t testing.TB, wrapper Wrapper) {
	wrapper.Exec(t, createBooksTableSQL)
	wrapper.Exec(t, createUsersTableSQL)
	wrapper.Exec(t, createBorrowingsTableSQL)
}

// CleanUp empties the lending tables and resets their id sequences.
func CleanUp(t testing.TB, wrapper Wrapper) {
	wrapper.Exec(t, "TRUNCATE TABLE borrowings, books, users RESTART IDENTITY CASCADE")
}
