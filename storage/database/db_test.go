package database

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/hafla/core"
)

func TestSQLXSatisfiesDBContract(t *testing.T) {
	assert.Implements(t, (*core.DB)(nil), (*sqlx.DB)(nil))
	assert.Implements(t, (*core.DBExecutor)(nil), (*sqlx.Tx)(nil))
}

func TestRepositoriesAcceptDBContract(t *testing.T) {
	var db core.DB = (*sqlx.DB)(nil)
	assert.NotNil(t, NewUserRepository(db))
	assert.NotNil(t, NewStudentRepository(db))
	assert.NotNil(t, NewEventRepository(db))
}
