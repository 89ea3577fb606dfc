package postgresengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
	"github.com/AntonStoeckl/library-lending-core-go/lending/cachestore"
	"github.com/AntonStoeckl/library-lending-core-go/lending/postgresengine/internal/adapters"
)

// GetUser returns the user with the given id via the cache-aside path,
// or nil when it does not exist.
func (e LendingEngine) GetUser(ctx context.Context, userID int64) (*lending.User, error) {
	key := keyUserByID(userID)

	var cached lending.User
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := e.fetchUser(ctx, e.db, userID)
	if err != nil || user == nil {
		return nil, err
	}

	e.cacheSet(ctx, key, user, cachestore.UsersOptions())

	return user, nil
}

// GetUserByEmail returns the user with the given email via the cache-aside path,
// or nil when it does not exist.
func (e LendingEngine) GetUserByEmail(ctx context.Context, email string) (*lending.User, error) {
	key := keyUserByEmail(email)

	var cached lending.User
	if e.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := e.fetchOneUser(ctx, e.db, goqu.C(colEmail).Eq(email))
	if err != nil || user == nil {
		return nil, err
	}

	e.cacheSet(ctx, key, user, cachestore.UsersOptions())

	return user, nil
}

func userColumns() []any {
	return []any{
		colUserID, colFirstName, colLastName, colEmail, colIsActive,
		colRole, colPasswordHash, colMembershipDate, colCreatedAt, colUpdatedAt,
	}
}

func (e LendingEngine) fetchUser(ctx context.Context, q adapters.Querier, userID int64) (*lending.User, error) {
	return e.fetchOneUser(ctx, q, goqu.C(colUserID).Eq(userID))
}

func (e LendingEngine) fetchOneUser(ctx context.Context, q adapters.Querier, where goqu.Expression) (*lending.User, error) {
	stmt := e.builder().
		From(e.tables.Users).
		Select(userColumns()...).
		Where(where)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, logAttrError, toSQLErr.Error())
		return nil, errors.Join(lending.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := e.runQuery(ctx, q, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer e.closeRows(ctx, rows)

	if !rows.Next() {
		return nil, nil
	}

	var user lending.User

	scanErr := rows.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.IsActive,
		&user.Role, &user.PasswordHash, &user.MembershipDate, &user.CreatedAt, &user.UpdatedAt,
	)
	if scanErr != nil {
		e.logError(ctx, logMsgScanRowFailed, logAttrError, scanErr.Error())
		return nil, errors.Join(lending.ErrScanningDBRowFailed, scanErr)
	}

	return &user, nil
}
