package database

import (
	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
)

// Casbin builds the RBAC enforcer over the shared Postgres connection.
// Unlike the store connections this is allowed to fail at runtime: callers
// either degrade (registration role grant) or answer 500 (admin routes).
func Casbin() (*casbin.Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(Postgres)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer("config/restful_rbac_model.conf", adapter)
	if err != nil {
		return nil, err
	}

	// Default admin policy
	if hasPolicy, _ := e.HasPolicy("admin", "/v1/admin*", "(GET)|(POST)|(PUT)|(DELETE)"); !hasPolicy {
		e.AddPolicy("admin", "/v1/admin*", "(GET)|(POST)|(PUT)|(DELETE)")
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}
	return e, nil
}
