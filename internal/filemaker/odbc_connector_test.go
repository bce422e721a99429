package filemaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionsQueryUsesParentKey(t *testing.T) {
	// The Sessions table carries its workshop link in
	// ParentWorkshopNumber; querying WorkshopNumber errors against the
	// real schema and would silently starve every sync of session data.
	assert.Contains(t, sessionsQuery, `FROM Sessions WHERE "ParentWorkshopNumber" = ?`)
	assert.Contains(t, sessionsQuery, `ORDER BY "DateStart", "BeginTime"`)
}

func TestLooseInt(t *testing.T) {
	assert.Equal(t, 30, looseInt("30"))
	assert.Equal(t, 0, looseInt(""))
	assert.Equal(t, 0, looseInt("n/a"))
}
