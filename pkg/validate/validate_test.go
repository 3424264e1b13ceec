package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobodyclimb/crag-sync/pkg/models"
)

func validCragRow() []string {
	return []string{
		"approved",           // status
		"",                   // id
		"龍洞",                 // name
		"Long Dong",          // nameEn
		"longdong",           // slug
		"北部",                 // region
		"新北市貢寮區",             // location
		"25.1097",            // latitude
		"121.9205",           // longitude
		"15",                 // altitude
		"sandstone",          // rockType
		"sport, trad",        // climbingTypes
		"5.6-5.14a",          // difficultyRange
		"台灣最大的天然岩場",          // description
		"",                   // accessInfo
		"",                   // parkingInfo
		"10",                 // approachTime
		"spring,autumn",      // bestSeasons
		"",                   // restrictions
		"https://img.nobodyclimb.cc/ld.jpg", // coverImage
		"true",               // isFeatured
		"climber@example.com", // submittedBy
		"2024-05-01",         // submittedAt
		"mod@example.com",    // reviewedBy
		"2024-05-09",         // reviewedAt
		"",                   // reviewNotes
	}
}

func TestParseCrag_Valid(t *testing.T) {
	crag, errs := ParseCrag(2, validCragRow())
	require.Empty(t, errs)
	require.NotNil(t, crag)

	assert.Equal(t, models.StatusApproved, crag.Status)
	assert.Equal(t, "longdong", crag.Slug)
	assert.Equal(t, "龍洞", crag.Name)
	assert.Equal(t, 25.1097, crag.Latitude)
	assert.Equal(t, []string{"sport", "trad"}, crag.ClimbingTypes)
	assert.Equal(t, []string{"spring", "autumn"}, crag.BestSeasons)
	assert.True(t, crag.Featured)
	assert.Equal(t, "longdong", crag.StoreID())
}

func TestParseCrag_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(row []string)
		field  string
	}{
		{"missing name", func(r []string) { r[2] = "" }, "name"},
		{"missing slug", func(r []string) { r[4] = "" }, "slug"},
		{"uppercase slug", func(r []string) { r[4] = "LongDong" }, "slug"},
		{"unknown region", func(r []string) { r[5] = "西部" }, "region"},
		{"missing location", func(r []string) { r[6] = "" }, "location"},
		{"garbage latitude", func(r []string) { r[7] = "north-ish" }, "latitude"},
		{"latitude out of range", func(r []string) { r[7] = "48.85" }, "latitude"},
		{"longitude out of range", func(r []string) { r[8] = "2.35" }, "longitude"},
		{"garbage altitude", func(r []string) { r[9] = "tall" }, "altitude"},
		{"unknown climbing type", func(r []string) { r[11] = "sport,aid" }, "climbingTypes"},
		{"empty climbing types", func(r []string) { r[11] = "" }, "climbingTypes"},
		{"bad cover image URL", func(r []string) { r[19] = "not a url" }, "coverImage"},
		{"bad featured flag", func(r []string) { r[20] = "yes" }, "isFeatured"},
		{"bad submitter email", func(r []string) { r[21] = "not-an-email" }, "submittedBy"},
		{"unknown status", func(r []string) { r[0] = "published" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validCragRow()
			tt.mutate(row)
			crag, errs := ParseCrag(7, row)
			require.Nil(t, crag)
			require.NotEmpty(t, errs)

			found := false
			for _, e := range errs {
				assert.Equal(t, "Crags", e.Sheet)
				assert.Equal(t, 7, e.Row)
				if e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected an error on field %q, got %v", tt.field, errs)
		})
	}
}

func TestParseCrag_CollectsAllErrors(t *testing.T) {
	row := validCragRow()
	row[2] = ""          // name
	row[7] = "garbage"   // latitude
	row[11] = "aid"      // climbingTypes
	_, errs := ParseCrag(3, row)
	assert.GreaterOrEqual(t, len(errs), 3, "all problems on a row are reported, not just the first")
}

func TestParseCrag_ShortRowTrailingOptional(t *testing.T) {
	// Only the first 12 columns present; everything after climbingTypes was
	// never filled in. Optional trailing fields must not error. Latitude and
	// longitude left blank are allowed (empty numeric cells are valid).
	row := []string{"pending", "", "熱海", "", "reihai", "北部", "新北市", "", "", "", "", "sport"}
	crag, errs := ParseCrag(4, row)
	require.Empty(t, errs)
	assert.Equal(t, models.StatusPending, crag.Status)
	assert.Zero(t, crag.Latitude)
	assert.Empty(t, crag.CoverImage)
}

func TestParseArea(t *testing.T) {
	row := []string{"approved", "school-gate", "longdong", "校門口", "School Gate", "入門區域", "5.6", "5.10a", "48", "", "climber@example.com", "2024-05-01"}
	area, errs := ParseArea(2, row)
	require.Empty(t, errs)
	assert.Equal(t, "longdong/school-gate", area.Key())
	assert.Equal(t, 48, area.BoltCount)

	t.Run("missing id", func(t *testing.T) {
		bad := append([]string(nil), row...)
		bad[1] = ""
		area, errs := ParseArea(5, bad)
		require.Nil(t, area)
		require.Len(t, errs, 1)
		assert.Equal(t, "id", errs[0].Field)
	})

	t.Run("missing crag slug", func(t *testing.T) {
		bad := append([]string(nil), row...)
		bad[2] = ""
		_, errs := ParseArea(5, bad)
		require.NotEmpty(t, errs)
		assert.Equal(t, "cragSlug", errs[0].Field)
	})

	t.Run("garbage bolt count", func(t *testing.T) {
		bad := append([]string(nil), row...)
		bad[8] = "many"
		_, errs := ParseArea(5, bad)
		require.NotEmpty(t, errs)
		assert.Equal(t, "boltCount", errs[0].Field)
	})
}

func validRouteRow() []string {
	return []string{
		"approved", "r1", "longdong", "", "大禮堂", "校門口之歌", "5.10a", "yds", "sport",
		"25", "8", "expansion", "chain", "", "", "", "", "", "climber@example.com", "2024-05-01",
	}
}

func TestParseRoute(t *testing.T) {
	route, errs := ParseRoute(2, validRouteRow())
	require.Empty(t, errs)
	assert.Equal(t, "longdong/r1", route.Key())
	assert.Equal(t, 25, route.Length)
	assert.Equal(t, "yds", route.GradeSystem)

	t.Run("blank id allowed", func(t *testing.T) {
		row := validRouteRow()
		row[1] = ""
		route, errs := ParseRoute(3, row)
		require.Empty(t, errs)
		assert.Empty(t, route.ID)
	})

	tests := []struct {
		name   string
		mutate func(row []string)
		field  string
	}{
		{"missing name", func(r []string) { r[5] = "" }, "name"},
		{"missing grade", func(r []string) { r[6] = "" }, "grade"},
		{"unknown grade system", func(r []string) { r[7] = "uiaa" }, "gradeSystem"},
		{"unknown route type", func(r []string) { r[8] = "alpine" }, "routeType"},
		{"missing crag slug", func(r []string) { r[2] = "" }, "cragSlug"},
		{"garbage length", func(r []string) { r[9] = "long" }, "length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRouteRow()
			tt.mutate(row)
			route, errs := ParseRoute(9, row)
			require.Nil(t, route)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, 9, errs[0].Row)
			assert.Equal(t, "Routes", errs[0].Sheet)
		})
	}
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, IsBlankRow(nil))
	assert.True(t, IsBlankRow([]string{"", "  ", ""}))
	assert.False(t, IsBlankRow([]string{"", "x"}))
}
