package table

import (
	"bytes"
	"testing"

	"github.com/Konsultn-Engineering/quest/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	res := &database.Result{
		Fields: []string{"id", "name"},
		Rows: []map[string]any{
			{"id": int64(1), "name": "Ada"},
			{"id": int64(22), "name": nil},
		},
	}

	require.NoError(t, NewPrinter(&buf).Print(res))

	want := "" +
		"+----+------+\n" +
		"| id | name |\n" +
		"+----+------+\n" +
		"| 1  | Ada  |\n" +
		"| 22 | NULL |\n" +
		"+----+------+\n" +
		"(2 rows)\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintSingleRowFooter(t *testing.T) {
	var buf bytes.Buffer
	res := &database.Result{Fields: []string{"ñame"}, Rows: []map[string]any{{"ñame": "é"}}}

	require.NoError(t, NewPrinter(&buf).Print(res))
	assert.Contains(t, buf.String(), "| ñame |\n")
	assert.Contains(t, buf.String(), "| é    |\n")
	assert.Contains(t, buf.String(), "(1 row)\n")
}

func TestPrintWithoutColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).Print(&database.Result{RowsAffected: 3}))
	assert.Equal(t, "3 rows affected\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf).Print(nil))
	assert.Equal(t, "0 rows affected\n", buf.String())
}

func TestCell(t *testing.T) {
	assert.Equal(t, "NULL", Cell(nil))
	assert.Equal(t, "abc", Cell([]byte("abc")))
	assert.Equal(t, "true", Cell(true))
	assert.Equal(t, "1.5", Cell(1.5))
}
