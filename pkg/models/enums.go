package models

// Fixed value sets for enum-typed spreadsheet columns. Unknown values are
// validation errors, never silently coerced.

var Regions = []string{"北部", "中部", "南部", "東部", "離島"}

var ClimbingTypes = []string{"sport", "trad", "boulder", "mixed"}

var GradeSystems = []string{"yds", "french", "v-scale"}

func ValidRegion(v string) bool       { return contains(Regions, v) }
func ValidClimbingType(v string) bool { return contains(ClimbingTypes, v) }
func ValidGradeSystem(v string) bool  { return contains(GradeSystems, v) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
