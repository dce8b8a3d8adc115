package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExportURL(t *testing.T) {
	url, err := csvExportURL("https://docs.google.com/spreadsheets/d/1Dmlk4uP4828FN3guLYXVi2zzENMZ/edit", "1313232357")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/1Dmlk4uP4828FN3guLYXVi2zzENMZ/export?format=csv&gid=1313232357", url)
}

func TestCSVExportURLGidFromURL(t *testing.T) {
	// A gid embedded in the URL wins over the argument.
	url, err := csvExportURL("https://docs.google.com/spreadsheets/d/abc123/edit#gid=42", "7")
	require.NoError(t, err)
	assert.Contains(t, url, "gid=42")
}

func TestCSVExportURLInvalid(t *testing.T) {
	_, err := csvExportURL("https://example.com/not-a-sheet", "0")
	assert.Error(t, err)
}

func TestParseProductCSV(t *testing.T) {
	csvData := strings.Join([]string{
		`รายการ,หน่วย,รูป,ประเภทหลัก,ประเภทย่อย,ลำดับ`,
		`แครอท,กิโล,https://drive.google.com/file/d/abc123/view,ผัก,หัว,1`,
		`"ปลา, ทะเล",ตัว,,อาหารทะเล,,2`,
		`,,,,,`,
	}, "\n")

	products, err := ParseProductCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, products, 2)

	carrot := products[0]
	assert.Equal(t, "แครอท", carrot.Name)
	assert.Equal(t, "กิโล", carrot.Unit)
	assert.Equal(t, "ผัก", carrot.MainCategory)
	assert.Equal(t, "หัว", carrot.SubCategory)
	assert.Equal(t, 1, carrot.SortOrder)
	assert.True(t, carrot.IsActive)
	assert.Equal(t, "https://drive.google.com/thumbnail?id=abc123&sz=w400-h400", carrot.ImageURL)

	// Quoted comma stays inside the name cell.
	assert.Equal(t, "ปลา, ทะเล", products[1].Name)
	assert.Empty(t, products[1].SubCategory)
}

func TestParseProductCSVMissingNameColumn(t *testing.T) {
	_, err := ParseProductCSV(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestNormalizeDriveURL(t *testing.T) {
	assert.Equal(t,
		"https://drive.google.com/thumbnail?id=FILE42&sz=w400-h400",
		NormalizeDriveURL("https://drive.google.com/file/d/FILE42/view"))

	assert.Equal(t,
		"https://drive.google.com/thumbnail?id=FILE42&sz=w400-h400",
		NormalizeDriveURL("https://drive.google.com/uc?export=view&id=FILE42"))

	// Non-Drive URLs pass through unchanged.
	assert.Equal(t, "https://example.com/img.png", NormalizeDriveURL("https://example.com/img.png"))
	assert.Equal(t, "", NormalizeDriveURL(""))
}

func TestProxiedImageURL(t *testing.T) {
	assert.Contains(t, ProxiedImageURL("https://drive.google.com/file/d/FILE42/view"), "FILE42")
	assert.Empty(t, ProxiedImageURL("https://example.com/img.png"))
}
