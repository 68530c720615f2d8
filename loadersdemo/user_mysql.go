package loadersdemo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/everyday-items/loadq/infra/db/mysql"
	"github.com/everyday-items/loadq/loader"
	"github.com/everyday-items/loadq/util/config"
)

const userHandlerClass loader.HandlerClass = "mysql_user"

// User is the row shape returned by LoadUser.
type User struct {
	ID    int64
	Name  string
	Email string
}

// LoadUser is a pending fetch of a single user row by id. Repeated
// loads of the same id coalesce onto one pending future.
type LoadUser struct {
	loader.Base
	ID int64
}

func (f *LoadUser) HandlerClass() loader.HandlerClass { return userHandlerClass }
func (f *LoadUser) InstanceKey() loader.InstanceKey {
	return loader.InstanceKey(strconv.FormatInt(f.ID, 10))
}

// NewLoadUser injects a LoadUser(id) future into q and returns the
// live instance, which may be a pre-existing future coalesced onto
// the same id.
func NewLoadUser(q *loader.Queue, id int64) *LoadUser {
	return loader.Inject(q, &LoadUser{ID: id})
}

// MySQLUserHandler resolves LoadUser futures with one batched
// `SELECT ... WHERE id IN (...)` per group.
type MySQLUserHandler struct {
	DB  *mysql.DB
	ctx context.Context
}

// NewMySQLUserHandler builds a handler bound to db. ctx is used for
// the lifetime of every query issued by SatisfyMulti; pass
// context.Background() if the caller has no request-scoped deadline.
func NewMySQLUserHandler(ctx context.Context, db *mysql.DB) *MySQLUserHandler {
	return &MySQLUserHandler{DB: db, ctx: ctx}
}

func (h *MySQLUserHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, _ loader.BatchingKey) error {
	ids := make([]int64, 0, len(group))
	byID := make(map[int64]*LoadUser, len(group))
	for _, f := range group {
		lu := f.(*LoadUser)
		ids = append(ids, lu.ID)
		byID[lu.ID] = lu
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT id, name, email FROM users WHERE id IN (%s)", strings.Join(placeholders, ","))

	timeout := config.Global().GetDurationDefault("loadersdemo.mysql_query_timeout", 5*time.Second)
	rows, err := h.DB.QueryWithTimeout(h.ctx, timeout, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return err
		}
		found[u.ID] = true
		if lu, ok := byID[u.ID]; ok {
			if err := lu.Satisfy(u); err != nil {
				return err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, lu := range byID {
		if !found[id] {
			if err := lu.Satisfy(nil); err != nil {
				return err
			}
		}
	}
	return nil
}
