package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf, Table{
		Sheet:       "طلبات التوظيف",
		Headers:     []string{"الاسم", "الحالة"},
		Rows:        [][]string{{"سارة", "REJECTED"}, {"Ali", "PENDING"}},
		RightToLeft: true,
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("طلبات التوظيف")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"الاسم", "الحالة"}, rows[0])
	assert.Equal(t, []string{"سارة", "REJECTED"}, rows[1])

	view, err := f.GetSheetView("طلبات التوظيف", 0)
	require.NoError(t, err)
	require.NotNil(t, view.RightToLeft)
	assert.True(t, *view.RightToLeft)
}
