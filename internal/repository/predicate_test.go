package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereComposesInOrder(t *testing.T) {
	clause, args := Where(
		Eq("s.shift_id", int64(3)),
		Search("ann", "s.name", "s.phone"),
		Eq("s.status", "active"),
	)
	assert.Equal(t, " WHERE s.shift_id = ? AND (s.name ILIKE ? OR s.phone ILIKE ?) AND s.status = ?", clause)
	assert.Equal(t, []interface{}{int64(3), "%ann%", "%ann%", "active"}, args)
	assert.Equal(t, " WHERE s.shift_id = $1 AND (s.name ILIKE $2 OR s.phone ILIKE $3) AND s.status = $4", rebind(clause))
}

func TestWhereEmpty(t *testing.T) {
	clause, args := Where()
	assert.Empty(t, clause)
	assert.Nil(t, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\tmp`, EscapeLike(`c:\tmp`))
}
